package insights

import (
	"sort"
	"time"

	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

const ruleFollowUp = "follow-up detection"

// FollowUps returns the consult sales made within DaysThreshold days of
// the same customer's immediately preceding consult. Rows keep the sales
// table's columns and original order.
func (e *Engine) FollowUps(sales *record.Table) (*record.Table, error) {
	return followUps(sales, e.opts.DaysThreshold)
}

func followUps(sales *record.Table, daysThreshold int) (*record.Table, error) {
	cols, err := requireColumns(sales, ruleFollowUp,
		ColSaleID, ColCustomerTK, ColProductName, ColInvoiceDate)
	if err != nil {
		return record.Empty(), err
	}
	sid, cid, pid, did := cols[0], cols[1], cols[2], cols[3]

	consults := productsMatching(sales, CategoryConsult)

	type visit struct {
		date time.Time
		sale string
		ok   bool
	}
	var consultRows []int
	groups := make(map[string][]visit)
	var order []string
	for i, r := range sales.Rows {
		if !consults.contains(r[pid]) {
			continue
		}
		consultRows = append(consultRows, i)

		d, ok := record.Date(r[did])
		if !ok {
			continue
		}
		customer, ok := record.Key(r[cid])
		if !ok {
			continue
		}
		sale, saleOK := record.Key(r[sid])
		if _, seen := groups[customer]; !seen {
			order = append(order, customer)
		}
		groups[customer] = append(groups[customer], visit{date: d, sale: sale, ok: saleOK})
	}

	limit := days(daysThreshold)
	marked := make(map[string]struct{})
	for _, customer := range order {
		visits := groups[customer]
		sort.SliceStable(visits, func(i, j int) bool { return visits[i].date.Before(visits[j].date) })
		for i := 1; i < len(visits); i++ {
			if visits[i].ok && visits[i].date.Sub(visits[i-1].date) <= limit {
				marked[visits[i].sale] = struct{}{}
			}
		}
	}

	var keep []int
	for _, i := range consultRows {
		if sale, ok := record.Key(sales.Rows[i][sid]); ok {
			if _, hit := marked[sale]; hit {
				keep = append(keep, i)
			}
		}
	}
	return sales.Take(keep), nil
}

// requireColumns resolves column positions or fails with a data shape error
func requireColumns(t *record.Table, rule string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		c, ok := t.ColumnIndex(name)
		if !ok {
			return nil, errors.DataShapeError(rule, name)
		}
		idx[i] = c
	}
	return idx, nil
}
