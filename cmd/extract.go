package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vetbiz/internal/common"
	"vetbiz/internal/config"
	"vetbiz/internal/insights"
	"vetbiz/internal/observability"
	"vetbiz/internal/record"
	"vetbiz/internal/ui"
	"vetbiz/internal/warehouse"
	"vetbiz/pkg/errors"
)

// Names of the fetched tables in summaries and exports
const (
	tableSales              = "sales"
	tableCustomers          = "customers"
	tableCustomersFromSales = "customers_from_sales"
)

type extractOptions struct {
	queriesPath   string
	limit         int
	referenceDate string
	batchSize     int
	metricsFile   string
	output        outputOptions
}

// extractDeps are the collaborators of an extract run
type extractDeps struct {
	env      config.Getter
	secrets  config.SecretStore
	settings *config.Settings
	opener   warehouse.OpenFunc
	out      io.Writer
	logger   *observability.Logger
}

var extractOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch sales and customers and derive the insight datasets",
	Long: `Fetch the sales and customer record sets from the warehouse, derive
follow-up consults, consult-to-dental conversions, lapsed clients and
active customers, and print or export every table.

Connection settings come from DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and
DB_NAME (environment or .env file). Queries come from a JSON file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		_, err = runExtract(cmd.Context(), extractOpts, extractDeps{
			env:      viper.GetViper(),
			secrets:  config.Keyring{},
			settings: settings,
			out:      cmd.OutOrStdout(),
			logger:   observability.GetDefaultLogger(),
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringVarP(&extractOpts.queriesPath, "queries", "q", config.DefaultQueryFile, "JSON file with sales_query and customers_query")
	flags.IntVarP(&extractOpts.limit, "limit", "l", 0, "Cap every query at N rows (0 for no limit)")
	flags.StringVar(&extractOpts.referenceDate, "reference-date", "", "Date the period scanners treat as today (YYYY-MM-DD)")
	flags.IntVar(&extractOpts.batchSize, "batch-size", 0, "Rows fetched per chunk (default from settings)")
	flags.StringVar(&extractOpts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	extractOpts.output.addFlags(flags)
}

func parseReferenceDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.InvalidConfigError("reference-date", value, "must be a date in YYYY-MM-DD form")
	}
	return t, nil
}

// runExtract performs one full batch run. Configuration is resolved
// completely before any connection is opened.
func runExtract(ctx context.Context, opts extractOptions, deps extractDeps) (*insights.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.settings == nil {
		deps.settings = config.DefaultSettings()
	}
	if deps.logger == nil {
		deps.logger = observability.GetDefaultLogger()
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}
	logger := deps.logger
	done := logger.Timed("Total execution time")
	defer done()

	if opts.limit < 0 {
		return nil, errors.InvalidConfigError("limit", opts.limit, "must not be negative")
	}
	reference, err := parseReferenceDate(opts.referenceDate)
	if err != nil {
		return nil, err
	}

	queries, err := config.LoadQueries(opts.queriesPath)
	if err != nil {
		return nil, err
	}
	q := queries.WithLimit(opts.limit)

	wcfg, err := config.WarehouseFromEnv(deps.env, config.Primary, deps.secrets)
	if err != nil {
		return nil, err
	}
	wcfg = config.WithDefaultTimeout(wcfg)

	batchSize := deps.settings.Fetch.BatchSize
	if opts.batchSize > 0 {
		batchSize = opts.batchSize
	}

	sinks, err := opts.output.sinks(deps.out)
	if err != nil {
		return nil, err
	}
	defer sinks.Close()

	metrics := observability.NewMetricsRegistry("vetbiz")
	if opts.metricsFile != "" {
		defer func() {
			if err := writeMetrics(opts.metricsFile, metrics); err != nil {
				logger.ErrorWithFields("Failed to write metrics", map[string]interface{}{"error": err})
			}
		}()
	}

	logger.InfoWithFields("Starting extract", map[string]interface{}{
		"warehouse":  wcfg.Redacted(),
		"batch_size": batchSize,
		"limit":      opts.limit,
	})

	fetch := func(name, query string) (*record.Table, error) {
		printer := message.NewPrinter(language.English)
		spinner := ui.NewSpinner("Fetching " + name)
		spinner.Start()

		fetcher := warehouse.NewFetcher(wcfg,
			warehouse.WithBatchSize(batchSize),
			warehouse.WithOpener(deps.opener),
			warehouse.WithLogger(logger),
			warehouse.WithMetrics(metrics),
			warehouse.WithChunkCallback(func(p warehouse.ChunkProgress) {
				spinner.UpdateMessage(printer.Sprintf("Fetching %s: %d rows", name, p.TotalRows))
			}),
		)
		t, err := fetcher.Fetch(ctx, name, query)
		if err != nil {
			spinner.Stop(false, fmt.Sprintf("Fetching %s failed", name))
			return t, err
		}
		spinner.Stop(true, printer.Sprintf("Fetched %s: %d rows", name, t.Len()))
		return t, nil
	}

	// Sales feed every rule; without them there is nothing to derive
	sales, err := fetch(tableSales, q.Sales)
	if err != nil {
		return nil, err
	}
	if withTotals, err := record.WithSalesTotals(sales); err != nil {
		logger.WarnWithFields("Sales totals could not be derived", map[string]interface{}{"error": err})
	} else {
		sales = withTotals
	}

	customers, err := fetch(tableCustomers, q.Customers)
	if err != nil {
		ui.ShowWarning("Customers could not be fetched; continuing without them")
	}

	var joined *record.Table
	if q.CustomersFromSales != "" {
		joined, err = fetch(tableCustomersFromSales, q.CustomersFromSales)
		if err != nil {
			ui.ShowWarning("Active customer join could not be fetched; skipping active customers")
			joined = nil
		}
	}

	var exportErrs []error
	for _, nt := range []insights.NamedTable{
		{Name: tableSales, Table: sales},
		{Name: tableCustomers, Table: customers},
		{Name: tableCustomersFromSales, Table: joined},
	} {
		if nt.Table == nil || nt.Table.Width() == 0 {
			continue
		}
		if err := writeTable(ctx, sinks, logger, nt.Name, nt.Table); err != nil {
			exportErrs = append(exportErrs, err)
		}
	}

	engine := insights.NewEngine(deps.settings.InsightOptions(), reference, logger).WithMetrics(metrics)
	logger.InfoWithFields("Deriving insights", map[string]interface{}{
		"reference_date": engine.Reference().Format("2006-01-02"),
	})

	report, deriveErr := engine.Derive(ctx, sales, joined)
	if deriveErr != nil {
		ui.ShowWarning("Some insight rules failed: " + deriveErr.Error())
	}

	for _, nt := range report.Tables() {
		if nt.Table.Width() == 0 {
			continue
		}
		if err := writeTable(ctx, sinks, logger, nt.Name, nt.Table); err != nil {
			exportErrs = append(exportErrs, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(exportErrs) > 0 {
		return report, stderrors.Join(exportErrs...)
	}
	return report, nil
}

func writeMetrics(path string, metrics *observability.MetricsRegistry) error {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(cleaned, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, common.FilePermissionNormal) // #nosec G304 - path is validated
	if err != nil {
		return err
	}
	if err := metrics.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
