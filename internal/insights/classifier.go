// Package insights derives the reporting datasets from fetched sales
// tables: follow-up consults, consult to dental conversions, lapsed
// clients and active customers.
package insights

import (
	"strings"

	"vetbiz/internal/record"
)

// Product categories recognised by keyword
const (
	CategoryConsult = "consult"
	CategoryDental  = "dental"
)

// Categories lists every keyword category in reporting order
var Categories = []string{CategoryConsult, CategoryDental}

// Classify returns the products whose lower-cased name contains keyword,
// preserving input order. Non-string entries are skipped.
func Classify(products []interface{}, keyword string) []string {
	needle := strings.ToLower(keyword)
	var out []string
	for _, p := range products {
		name, ok := record.Text(p)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			out = append(out, name)
		}
	}
	return out
}

// Categorize returns every category whose keyword matches name. A name may
// belong to several categories.
func Categorize(name interface{}) []string {
	var out []string
	for _, c := range Categories {
		if len(Classify([]interface{}{name}, c)) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// DistinctProducts returns the distinct values of the product column in
// first-seen order, nulls included once
func DistinctProducts(t *record.Table) []interface{} {
	c, ok := t.ColumnIndex(ColProductName)
	if !ok {
		return nil
	}

	var out []interface{}
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		v := record.Normalize(r[c])
		k, ok := record.Key(v)
		if !ok {
			k = "\x00"
		} else if _, isText := v.(string); !isText {
			// keep 12 and "12" apart
			k = "\x01" + k
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

type productSet map[string]struct{}

// productsMatching classifies the table's distinct product names once
func productsMatching(t *record.Table, keyword string) productSet {
	set := make(productSet)
	for _, name := range Classify(DistinctProducts(t), keyword) {
		set[name] = struct{}{}
	}
	return set
}

func (s productSet) contains(v interface{}) bool {
	name, ok := record.Text(v)
	if !ok {
		return false
	}
	_, found := s[name]
	return found
}
