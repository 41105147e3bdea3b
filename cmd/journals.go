package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vetbiz/internal/config"
	"vetbiz/internal/observability"
	"vetbiz/internal/record"
	"vetbiz/internal/ui"
	"vetbiz/internal/warehouse"
	"vetbiz/pkg/errors"
)

const tableJournals = "journals"

type journalsOptions struct {
	queriesPath string
	tables      []string
	limit       int
	batchSize   int
	output      outputOptions
}

var journalsOpts journalsOptions

var journalsCmd = &cobra.Command{
	Use:   "journals",
	Short: "Fetch accounting journal tables from the secondary source",
	Long: `Fetch every configured journal table from the secondary (accounting)
source and concatenate them into one table, aligning columns by name.

Connection settings come from ETANI_DB_SERVER, ETANI_DB_USER,
ETANI_DB_PASSWORD, ETANI_DB_NAME and ETANI_DB_PORT. Tables come from
--tables or the journal_tables key of the query file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		_, err = runJournals(cmd.Context(), journalsOpts, extractDeps{
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
	rootCmd.AddCommand(journalsCmd)

	flags := journalsCmd.Flags()
	flags.StringVarP(&journalsOpts.queriesPath, "queries", "q", config.DefaultQueryFile, "JSON file with journal_tables")
	flags.StringSliceVarP(&journalsOpts.tables, "tables", "t", nil, "Journal tables to fetch (overrides the query file)")
	flags.IntVarP(&journalsOpts.limit, "limit", "l", 0, "Cap every table at N rows (0 for no limit)")
	flags.IntVar(&journalsOpts.batchSize, "batch-size", 0, "Rows fetched per chunk (default from settings)")
	journalsOpts.output.addFlags(flags)
}

// journalTables resolves the table list, preferring explicit tables
func journalTables(opts journalsOptions) ([]string, error) {
	var tables []string
	for _, t := range opts.tables {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	if len(tables) > 0 {
		return tables, nil
	}

	queries, err := config.LoadQueries(opts.queriesPath)
	if err != nil {
		return nil, err
	}
	if len(queries.JournalTables) == 0 {
		return nil, errors.ConfigError("No journal tables configured", "journal_tables").
			WithSuggestions("Pass --tables or add journal_tables to the query file")
	}
	return queries.JournalTables, nil
}

// runJournals fetches and concatenates the journal tables. Tables that
// fail are skipped; the run fails only when nothing could be fetched.
func runJournals(ctx context.Context, opts journalsOptions, deps extractDeps) (*record.Table, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.settings == nil {
		deps.settings = config.DefaultSettings()
	}
	if deps.logger == nil {
		deps.logger = observability.GetDefaultLogger()
	}
	var out io.Writer = os.Stdout
	if deps.out != nil {
		out = deps.out
	}
	logger := deps.logger
	done := logger.Timed("Journals execution time")
	defer done()

	if opts.limit < 0 {
		return nil, errors.InvalidConfigError("limit", opts.limit, "must not be negative")
	}

	tables, err := journalTables(opts)
	if err != nil {
		return nil, err
	}

	wcfg, err := config.WarehouseFromEnv(deps.env, config.Secondary, deps.secrets)
	if err != nil {
		return nil, err
	}
	wcfg = config.WithDefaultTimeout(wcfg)

	batchSize := deps.settings.Fetch.BatchSize
	if opts.batchSize > 0 {
		batchSize = opts.batchSize
	}

	sinks, err := opts.output.sinks(out)
	if err != nil {
		return nil, err
	}
	defer sinks.Close()

	progress := ui.NewProgressBar("Journal tables", len(tables))
	fetcher := warehouse.NewFetcher(wcfg,
		warehouse.WithBatchSize(batchSize),
		warehouse.WithOpener(deps.opener),
		warehouse.WithLogger(logger),
		warehouse.WithTableCallback(func(name string, err error) {
			progress.Update(name, err == nil)
		}),
	)

	journals, fetchErr := fetcher.FetchTables(ctx, tables, opts.limit)
	progress.Finish()

	if journals.Width() == 0 {
		err := errors.New(errors.ErrCodeQueryFailed, "No journal table could be fetched").
			WithContext("tables", strings.Join(tables, ", "))
		if fetchErr != nil {
			err.Cause = fetchErr
		}
		return journals, err
	}
	if fetchErr != nil {
		_, failed := progress.Counts()
		ui.ShowWarning(fmt.Sprintf("%d journal table(s) were skipped; see the log for details", failed))
	}

	if err := writeTable(ctx, sinks, logger, tableJournals, journals); err != nil {
		return journals, err
	}
	return journals, nil
}
