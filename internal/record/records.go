package record

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// SalesRecord is the typed view of one line-item sale row
type SalesRecord struct {
	VisitID      int64      `mapstructure:"visit_id"`
	SaleID       int64      `mapstructure:"sale_id"`
	ClinicTK     int64      `mapstructure:"clinic_tk"`
	CustomerTK   int64      `mapstructure:"customer_tk"`
	PatientTK    int64      `mapstructure:"patient_tk"`
	ProductTK    int64      `mapstructure:"product_tk"`
	ProductName  *string    `mapstructure:"product_name"`
	UnitCost     *float64   `mapstructure:"unit_cost"`
	FixedCost    *float64   `mapstructure:"fixed_cost"`
	UnitSale     *float64   `mapstructure:"unit_sale"`
	FixedSale    *float64   `mapstructure:"fixed_sale"`
	InvoiceDate  *time.Time `mapstructure:"invoice_date"`
	PracticeName string     `mapstructure:"practice_name"`
	ClinicName   string     `mapstructure:"clinic_name"`
	CustomerID   string     `mapstructure:"customer_id"`
	Year         int        `mapstructure:"year"`
	Month        int        `mapstructure:"month"`
}

// TotalCost is unit plus fixed cost; ok is false when either is null
func (s SalesRecord) TotalCost() (total float64, ok bool) {
	return sum(s.UnitCost, s.FixedCost)
}

// TotalSale is unit plus fixed sale; ok is false when either is null
func (s SalesRecord) TotalSale() (total float64, ok bool) {
	return sum(s.UnitSale, s.FixedSale)
}

func sum(a, b *float64) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return *a + *b, true
}

// DecodeSales decodes every row of t into a SalesRecord
func DecodeSales(t *Table) ([]SalesRecord, error) {
	out := make([]SalesRecord, t.Len())
	for i := range t.Rows {
		if err := decodeRow(t, i, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Derived sales columns
const (
	ColTotalCost = "total_cost"
	ColTotalSale = "total_sale"
)

var amountColumns = []string{"unit_cost", "fixed_cost", "unit_sale", "fixed_sale"}

// WithSalesTotals returns a copy of sales with total_cost and total_sale
// appended. A table that lacks any amount column, or already carries both
// totals, is returned unchanged. Totals are null when either part is null.
func WithSalesTotals(sales *Table) (*Table, error) {
	for _, name := range amountColumns {
		if !sales.HasColumn(name) {
			return sales, nil
		}
	}
	if sales.HasColumn(ColTotalCost) && sales.HasColumn(ColTotalSale) {
		return sales, nil
	}

	records, err := DecodeSales(sales)
	if err != nil {
		return sales, err
	}

	out := sales.WithColumn(Column{Name: ColTotalCost, DatabaseType: "DECIMAL", Nullable: true})
	out = out.WithColumn(Column{Name: ColTotalSale, DatabaseType: "DECIMAL", Nullable: true})
	out.Rows = make([]Row, len(sales.Rows))
	for i, r := range sales.Rows {
		cost, costOK := records[i].TotalCost()
		sale, saleOK := records[i].TotalSale()
		row := make(Row, 0, len(r)+2)
		row = append(row, r...)
		row = append(row, optional(cost, costOK), optional(sale, saleOK))
		out.Rows[i] = row
	}
	return out, nil
}

func optional(v float64, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook lets string and time values land in time.Time fields
func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	return cast.ToTimeE(data)
}

func decodeRow(t *Table, i int, target interface{}) error {
	input := make(map[string]interface{}, len(t.Columns))
	for c, col := range t.Columns {
		v := Normalize(t.Rows[i][c])
		if v == nil {
			continue
		}
		input[col.Name] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("row %d: %w", i, err)
	}
	return nil
}
