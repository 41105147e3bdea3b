package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vetbiz/internal/observability"
	"vetbiz/internal/ui"
)

var (
	envFile string

	rootCmd = &cobra.Command{
		Use:   "vetbiz",
		Short: "Extract vet clinic sales and derive business insights",
		Long: `vetbiz pulls sales and customer records from the clinic data warehouse and
derives follow-up consults, consult-to-dental conversions, lapsed clients
and active customers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ui.ShowError(err)
		_ = observability.GetDefaultLogger().Sync()
		os.Exit(1)
	}
	_ = observability.GetDefaultLogger().Sync()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with database credentials in KEY=value form")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig makes the process environment and the env file visible
// through viper. Process variables win over the file.
func initConfig() {
	viper.AutomaticEnv()

	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err != nil {
		// No env file is fine; credentials may come from the environment
		return
	}

	viper.SetConfigFile(envFile)
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		ui.ShowWarning("Could not read " + envFile + ": " + err.Error())
	}
}

func initLogger() {
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LogLevelFromString(viper.GetString("LOG_LEVEL")),
		Output:  os.Stderr,
		Service: "vetbiz",
		Version: Version,
	})
	observability.SetDefaultLogger(logger)
}
