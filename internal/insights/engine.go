package insights

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"vetbiz/internal/observability"
	"vetbiz/internal/record"
)

// Dataset names, used for logging and export
const (
	DatasetFollowUps       = "follow_ups"
	DatasetConsultDental   = "consult_dental"
	DatasetLapsed          = "lapsed_clients"
	DatasetActiveCustomers = "active_customers"
)

// Engine evaluates the insight rules against immutable input tables.
// Window boundaries are computed from the reference date, never the clock.
type Engine struct {
	opts      Options
	reference time.Time
	logger    *observability.Logger
	metrics   *observability.MetricsRegistry
}

// NewEngine creates an engine. A zero reference means today.
func NewEngine(opts Options, reference time.Time, logger *observability.Logger) *Engine {
	if reference.IsZero() {
		reference = time.Now()
	}
	if logger == nil {
		logger = observability.GetDefaultLogger()
	}
	return &Engine{
		opts:      opts.normalized(),
		reference: time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, time.UTC),
		logger:    logger,
	}
}

// WithMetrics records per-rule row counts and timings in reg
func (e *Engine) WithMetrics(reg *observability.MetricsRegistry) *Engine {
	e.metrics = reg
	return e
}

// Options returns the effective options
func (e *Engine) Options() Options {
	return e.opts
}

// Reference returns the reference date
func (e *Engine) Reference() time.Time {
	return e.reference
}

// NamedTable pairs a derived table with its dataset name
type NamedTable struct {
	Name  string
	Table *record.Table
}

// Report holds the four derived datasets of a run. Tables are never nil.
type Report struct {
	FollowUps       *record.Table
	ConsultDental   *record.Table
	Lapsed          *record.Table
	ActiveCustomers *record.Table
}

// Tables lists the datasets in reporting order
func (r *Report) Tables() []NamedTable {
	return []NamedTable{
		{Name: DatasetFollowUps, Table: r.FollowUps},
		{Name: DatasetConsultDental, Table: r.ConsultDental},
		{Name: DatasetLapsed, Table: r.Lapsed},
		{Name: DatasetActiveCustomers, Table: r.ActiveCustomers},
	}
}

// Derive runs every rule concurrently. joined feeds the active-customer
// scan and may be nil, in which case that dataset is empty. A failing rule
// leaves its dataset empty; the others still complete and all failures are
// returned joined.
func (e *Engine) Derive(ctx context.Context, sales, joined *record.Table) (*Report, error) {
	if sales == nil {
		sales = record.Empty()
	}
	report := &Report{}
	errs := make([]error, 4)

	var g errgroup.Group
	run := func(i int, name string, dst **record.Table, rule func() (*record.Table, error)) {
		g.Go(func() error {
			start := time.Now()
			t, err := rule()
			if t == nil {
				t = record.Empty()
			}
			*dst = t
			errs[i] = err

			elapsed := time.Since(start)
			e.observe(name, t, elapsed, err)

			fields := map[string]interface{}{
				"dataset": name,
				"rows":    t.Len(),
				"elapsed": elapsed.String(),
			}
			if err != nil {
				fields["error"] = err
				e.logger.WarnWithFields("Rule failed", fields)
			} else {
				e.logger.InfoWithFields("Rule complete", fields)
			}
			return nil
		})
	}

	run(0, DatasetFollowUps, &report.FollowUps, func() (*record.Table, error) {
		return e.FollowUps(sales)
	})
	run(1, DatasetConsultDental, &report.ConsultDental, func() (*record.Table, error) {
		return e.ConsultDental(sales)
	})
	run(2, DatasetLapsed, &report.Lapsed, func() (*record.Table, error) {
		return e.LapsedClients(ctx, sales)
	})
	if joined != nil {
		run(3, DatasetActiveCustomers, &report.ActiveCustomers, func() (*record.Table, error) {
			return e.ActiveCustomers(ctx, joined)
		})
	} else {
		e.logger.Warn("No active-customer join table; skipping active customer scan")
		report.ActiveCustomers = record.Empty()
	}

	_ = g.Wait()
	return report, stderrors.Join(errs...)
}

func (e *Engine) observe(name string, t *record.Table, elapsed time.Duration, err error) {
	if e.metrics == nil {
		return
	}
	labels := map[string]string{"dataset": name}
	e.metrics.Histogram("rule_duration_seconds", "Time spent evaluating a rule", labels, nil).
		Observe(elapsed.Seconds())
	if err != nil {
		e.metrics.Counter("rule_errors_total", "Failed rule evaluations", labels).Inc()
		return
	}
	e.metrics.Counter("rule_rows_total", "Rows produced by a rule", labels).Add(float64(t.Len()))
}
