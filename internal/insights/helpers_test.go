package insights

import (
	"time"

	"vetbiz/internal/record"
)

var salesColumns = []string{
	ColSaleID, ColClinicTK, ColCustomerTK, ColProductName, ColInvoiceDate, "unit_sale",
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(id, clinic, customer int64, product interface{}, date interface{}) record.Row {
	return record.Row{id, clinic, customer, product, date, 10.0}
}

func salesTable(rows ...record.Row) *record.Table {
	t := record.NewTableFromNames(salesColumns...)
	t.Rows = append(t.Rows, rows...)
	return t
}

func saleIDs(t *record.Table) []int64 {
	c, _ := t.ColumnIndex(ColSaleID)
	ids := make([]int64, 0, t.Len())
	for _, r := range t.Rows {
		ids = append(ids, r[c].(int64))
	}
	return ids
}

var activeColumns = []string{ColSaleID, ColCustomerTK, ColActivityDate, "clinician"}

func activity(id, customer int64, date interface{}) record.Row {
	return record.Row{id, customer, date, "Dr Vet"}
}

func activeTable(rows ...record.Row) *record.Table {
	t := record.NewTableFromNames(activeColumns...)
	t.Rows = append(t.Rows, rows...)
	return t
}
