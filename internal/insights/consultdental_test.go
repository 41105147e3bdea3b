package insights

import (
	"testing"
	"time"

	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetbiz/internal/observability"
	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

func TestConsultDental(t *testing.T) {
	spec.Run(t, "Consult to dental matcher", testConsultDental, spec.Report(report.Terminal{}))
}

func testConsultDental(t *testing.T, describe spec.G, it spec.S) {
	var engine *Engine
	consultDay := day(2024, 3, 1)

	it.Before(func() {
		engine = NewEngine(DefaultOptions(), day(2024, 12, 31), observability.NewNopLogger())
	})

	triple := func(clinic, customer int64, d interface{}) record.Row {
		return record.Row{clinic, customer, d}
	}

	describe("date window", func() {
		it("includes day 14, excludes day 15 and days before the consult", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", consultDay),
				sale(2, 1, 7, "Dental scale", consultDay.AddDate(0, 0, -1)),
				sale(3, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 14)),
				sale(4, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 15)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []string{ColClinicTK, ColCustomerTK, ColInvoiceDate}, out.ColumnNames())
			assert.Equal(t, []record.Row{triple(1, 7, consultDay.AddDate(0, 0, 14))}, out.Rows)
		})

		it("matches a same-day product that is both consult and dental", func() {
			sales := salesTable(sale(1, 1, 7, "Dental consult", consultDay))
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []record.Row{triple(1, 7, consultDay)}, out.Rows)
		})
	})

	describe("join keys", func() {
		it("requires the same customer", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", consultDay),
				sale(2, 1, 8, "Dental scale", consultDay.AddDate(0, 0, 1)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, 0, out.Len())
		})

		it("carries the dental clinic without matching on it", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", consultDay),
				sale(2, 2, 7, "Dental scale", consultDay.AddDate(0, 0, 2)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []record.Row{triple(2, 7, consultDay.AddDate(0, 0, 2))}, out.Rows)
		})
	})

	describe("deduplication", func() {
		it("emits a dental visit once even when several consults and line items match", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", consultDay),
				sale(2, 1, 7, "Consultation", consultDay.AddDate(0, 0, 4)),
				sale(3, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 9)),
				sale(4, 1, 7, "Dental x-ray", consultDay.AddDate(0, 0, 9)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []record.Row{triple(1, 7, consultDay.AddDate(0, 0, 9))}, out.Rows)
		})

		it("treats invoices at different times on one day as one visit", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", consultDay.Add(9*time.Hour)),
				sale(2, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 2).Add(10*time.Hour)),
				sale(3, 1, 7, "Dental x-ray", consultDay.AddDate(0, 0, 2).Add(15*time.Hour+30*time.Minute)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []record.Row{triple(1, 7, consultDay.AddDate(0, 0, 2))}, out.Rows)
		})

		it("orders by consult first, then dental visit", func() {
			sales := salesTable(
				sale(1, 1, 8, "Consultation", consultDay.AddDate(0, 0, 1)),
				sale(2, 1, 7, "Consultation", consultDay),
				sale(3, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 3)),
				sale(4, 1, 8, "Dental scale", consultDay.AddDate(0, 0, 5)),
				sale(5, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 2)),
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, []record.Row{
				triple(1, 8, consultDay.AddDate(0, 0, 5)),
				triple(1, 7, consultDay.AddDate(0, 0, 3)),
				triple(1, 7, consultDay.AddDate(0, 0, 2)),
			}, out.Rows)
		})
	})

	describe("data shape", func() {
		it("skips visits without a customer or date", func() {
			sales := salesTable(
				sale(1, 1, 7, "Consultation", nil),
				sale(2, 1, 7, "Dental scale", consultDay),
				record.Row{int64(3), int64(1), nil, "Consultation", consultDay, 10.0},
				record.Row{int64(4), int64(1), nil, "Dental scale", consultDay, 10.0},
			)
			out, err := engine.ConsultDental(sales)
			require.NoError(t, err)
			assert.Equal(t, 0, out.Len())
		})

		it("fails with an empty triple table when a column is missing", func() {
			out, err := engine.ConsultDental(activeTable())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDataShape))
			assert.Equal(t, []string{ColClinicTK, ColCustomerTK, ColInvoiceDate}, out.ColumnNames())
		})
	})

	it("is idempotent", func() {
		sales := salesTable(
			sale(1, 1, 7, "Consultation", consultDay),
			sale(2, 1, 7, "Dental scale", consultDay.AddDate(0, 0, 3)),
		)
		first, err := engine.ConsultDental(sales)
		require.NoError(t, err)
		second, err := engine.ConsultDental(sales)
		require.NoError(t, err)
		assert.Equal(t, first.Rows, second.Rows)
	})
}
