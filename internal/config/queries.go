package config

import (
	"encoding/json"
	"os"

	"vetbiz/internal/common"
	"vetbiz/internal/warehouse"
	"vetbiz/pkg/errors"
)

// DefaultQueryFile is read when no --queries flag is given
const DefaultQueryFile = "queries.json"

// Queries is the query file contract
type Queries struct {
	Sales              string   `json:"sales_query"`
	Customers          string   `json:"customers_query"`
	CustomersFromSales string   `json:"customers_from_sales_data_query,omitempty"`
	JournalTables      []string `json:"journal_tables,omitempty"`
}

// LoadQueries reads and validates the query file
func LoadQueries(path string) (*Queries, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeQueryFileNotFound, "Invalid query file path").
			WithContext("path", path)
	}

	data, err := os.ReadFile(cleaned) // #nosec G304 - path is validated
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueryFileNotFound, "Failed to read query file").
			WithContext("path", cleaned).
			WithSuggestions("Pass the query file with --queries", "Copy queries.example.json to queries.json")
	}

	var q Queries
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueryFileInvalid, "Query file is not valid JSON").
			WithContext("path", cleaned)
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Validate checks that the required queries are present
func (q *Queries) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"sales_query", q.Sales},
		{"customers_query", q.Customers},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.ConfigError("Missing required query '"+r.key+"' in query file", r.key)
		}
	}
	return nil
}

// WithLimit returns a copy with every query capped at limit rows
func (q Queries) WithLimit(limit int) Queries {
	q.Sales = warehouse.WithLimit(q.Sales, limit)
	q.Customers = warehouse.WithLimit(q.Customers, limit)
	if q.CustomersFromSales != "" {
		q.CustomersFromSales = warehouse.WithLimit(q.CustomersFromSales, limit)
	}
	return q
}
