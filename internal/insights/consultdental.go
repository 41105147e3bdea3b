package insights

import (
	"time"

	"vetbiz/internal/record"
)

const ruleConsultDental = "consult to dental matching"

type visitTriple struct {
	row      record.Row
	customer string
	date     time.Time
}

// ConsultDental returns the distinct (clinic_tk, customer_tk, invoice_date)
// dental visits falling on or up to DaysThreshold days after a consult for
// the same customer. Clinics are carried but not matched.
//
// Dental visits are bucketed by customer so each consult only scans its own
// customer's visits; emission order matches a consult-major nested loop.
func (e *Engine) ConsultDental(sales *record.Table) (*record.Table, error) {
	return consultDental(sales, e.opts.DaysThreshold)
}

func consultDental(sales *record.Table, daysThreshold int) (*record.Table, error) {
	names := []string{ColClinicTK, ColCustomerTK, ColInvoiceDate}
	if _, err := requireColumns(sales, ruleConsultDental, append(names, ColProductName)...); err != nil {
		return record.NewTableFromNames(names...), err
	}

	consults, err := distinctVisits(sales, productsMatching(sales, CategoryConsult))
	if err != nil {
		return record.NewTableFromNames(names...), err
	}
	dentals, err := distinctVisits(sales, productsMatching(sales, CategoryDental))
	if err != nil {
		return record.NewTableFromNames(names...), err
	}

	byCustomer := make(map[string][]visitTriple)
	for _, d := range dentals.triples {
		byCustomer[d.customer] = append(byCustomer[d.customer], d)
	}

	limit := days(daysThreshold)
	out := record.NewTable(dentals.columns...)
	seen := make(map[string]struct{})
	for _, c := range consults.triples {
		for _, d := range byCustomer[c.customer] {
			if d.date.Before(c.date) || d.date.Sub(c.date) > limit {
				continue
			}
			k := record.RowKey(d.row)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out.Rows = append(out.Rows, d.row)
		}
	}
	return out, nil
}

type visitSet struct {
	columns []record.Column
	triples []visitTriple
}

// distinctVisits projects the rows whose product is in products to distinct
// visit triples. Invoice dates are truncated to the day first, so several
// invoices on one day make a single visit. Triples without a customer or
// date can never match and are dropped.
func distinctVisits(sales *record.Table, products productSet) (visitSet, error) {
	pid, _ := sales.ColumnIndex(ColProductName)
	filtered := sales.Filter(func(r record.Row) bool { return products.contains(r[pid]) })

	projected, err := filtered.Project(ColClinicTK, ColCustomerTK, ColInvoiceDate)
	if err != nil {
		return visitSet{}, err
	}

	daily := record.NewTable(projected.Columns...)
	for _, r := range projected.Rows {
		d, ok := record.Date(r[2])
		if !ok {
			continue
		}
		daily.Rows = append(daily.Rows, record.Row{r[0], r[1], d})
	}
	daily = daily.Distinct()

	set := visitSet{columns: daily.Columns}
	for _, r := range daily.Rows {
		customer, ok := record.Key(r[1])
		if !ok {
			continue
		}
		set.triples = append(set.triples, visitTriple{row: r, customer: customer, date: r[2].(time.Time)})
	}
	return set, nil
}
