package cmd

import (
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"vetbiz/internal/config"
	"vetbiz/internal/ui"
)

var setupPrintDefaults bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Long: `Store a database password in the OS keyring and write the insight
settings file (` + "`~/.vetbiz/config.yaml`" + ` or $VETBIZ_CONFIG).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupPrintDefaults {
			return printDefaults(cmd.OutOrStdout())
		}

		current, err := config.Load()
		if err != nil {
			ui.ShowWarning("Existing settings could not be read; starting from defaults")
			current = config.DefaultSettings()
		}

		if config.Exists() {
			overwrite := false
			prompt := &survey.Confirm{
				Message: "Configuration already exists. Do you want to update it?",
				Default: true,
			}
			if err := survey.AskOne(prompt, &overwrite); err != nil || !overwrite {
				ui.ShowInfo("Setup cancelled.")
				return nil
			}
		}

		wizard := ui.NewSetupWizard(current, viper.GetString(config.Primary.Key("USER")))
		return runSetup(wizard, config.StorePassword, config.Save)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupPrintDefaults, "print-defaults", false, "Print the default settings file and exit")
}

type setupRunner interface {
	Run() (*ui.SetupResult, error)
}

type passwordStore func(source config.Source, user, password string) error

type settingsStore func(settings *config.Settings) error

func runSetup(wizard setupRunner, storePassword passwordStore, save settingsStore) error {
	result, err := wizard.Run()
	if err != nil {
		return err
	}

	if result.Password != "" {
		if err := storePassword(result.Source, result.User, result.Password); err != nil {
			return fmt.Errorf("failed to store password in keyring: %w", err)
		}
		ui.ShowSuccess(fmt.Sprintf("Password for %s stored in the keyring (%s)", result.User, result.Source.Name))
	}

	if err := save(result.Settings); err != nil {
		return err
	}
	ui.ShowSuccess("Settings saved to " + config.GetConfigFile())

	fmt.Fprintln(ui.Output)
	ui.ShowInfo(fmt.Sprintf("Set %s in the environment or .env file; the password is read from the keyring when %s is unset.",
		result.Source.Key("USER"), result.Source.Key("PASSWORD")))
	return nil
}

func printDefaults(w io.Writer) error {
	data, err := yaml.Marshal(config.DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal default settings: %w", err)
	}
	_, err = w.Write(data)
	return err
}
