package ui

import (
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cast"

	"vetbiz/internal/config"
)

// AskFunc matches survey.Ask
type AskFunc func(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error

// SetupResult is what the setup wizard collected
type SetupResult struct {
	Source   config.Source
	User     string
	Password string
	Settings *config.Settings
}

// SetupWizard interactively collects credentials and rule settings
type SetupWizard struct {
	ask         AskFunc
	defaults    *config.Settings
	defaultUser string
	currentStep int
	totalSteps  int
}

// NewSetupWizard creates a wizard pre-filled with the current settings
func NewSetupWizard(defaults *config.Settings, defaultUser string) *SetupWizard {
	if defaults == nil {
		defaults = config.DefaultSettings()
	}
	return &SetupWizard{
		ask:         survey.Ask,
		defaults:    defaults,
		defaultUser: defaultUser,
		currentStep: 1,
		totalSteps:  2,
	}
}

// WithAsker replaces the prompt implementation
func (w *SetupWizard) WithAsker(ask AskFunc) *SetupWizard {
	w.ask = ask
	return w
}

type credentialAnswers struct {
	Source   string `survey:"source"`
	User     string `survey:"user"`
	Password string `survey:"password"`
}

type settingsAnswers struct {
	DaysThreshold   string `survey:"days_threshold"`
	StartYear       string `survey:"start_year"`
	ActiveStartYear string `survey:"active_start_year"`
	MonthsThreshold string `survey:"months_threshold"`
	BatchSize       string `survey:"batch_size"`
}

// Run executes the wizard
func (w *SetupWizard) Run() (*SetupResult, error) {
	ShowHeader("vetbiz - Setup")

	result := &SetupResult{}
	if err := w.credentialsStep(result); err != nil {
		return nil, cancelled(err)
	}
	if err := w.settingsStep(result); err != nil {
		return nil, cancelled(err)
	}
	return result, nil
}

func cancelled(err error) error {
	if stderrors.Is(err, terminal.InterruptErr) {
		return fmt.Errorf("setup cancelled")
	}
	return err
}

func (w *SetupWizard) credentialsStep(result *SetupResult) error {
	w.showProgress("Database Credentials")

	questions := []*survey.Question{
		{
			Name: "source",
			Prompt: &survey.Select{
				Message: "Source:",
				Options: []string{config.Primary.Name, config.Secondary.Name},
				Default: config.Primary.Name,
				Help:    "warehouse holds sales data; etani holds accounting journals",
			},
		},
		{
			Name: "user",
			Prompt: &survey.Input{
				Message: "Database user:",
				Default: w.defaultUser,
			},
			Validate: survey.Required,
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
				Help:    "Stored in the OS keyring, never in the settings file",
			},
			Validate: survey.Required,
		},
	}

	var answers credentialAnswers
	if err := w.ask(questions, &answers); err != nil {
		return err
	}

	result.Source = config.Primary
	if answers.Source == config.Secondary.Name {
		result.Source = config.Secondary
	}
	result.User = answers.User
	result.Password = answers.Password

	w.currentStep++
	return nil
}

func (w *SetupWizard) settingsStep(result *SetupResult) error {
	w.showProgress("Insight Settings")

	d := w.defaults
	active := d.Insights.ActiveStartYear
	if active == 0 {
		active = d.Insights.StartYear
	}
	questions := []*survey.Question{
		intQuestion("days_threshold", "Follow-up and dental window (days):", d.Insights.DaysThreshold),
		intQuestion("start_year", "Lapsed client scan start year:", d.Insights.StartYear),
		intQuestion("active_start_year", "Active customer scan start year:", active),
		intQuestion("months_threshold", "Active customer lookback (months):", d.Insights.MonthsThreshold),
		intQuestion("batch_size", "Fetch batch size (rows):", d.Fetch.BatchSize),
	}

	var answers settingsAnswers
	if err := w.ask(questions, &answers); err != nil {
		return err
	}

	settings := *d
	settings.Insights.DaysThreshold = cast.ToInt(answers.DaysThreshold)
	settings.Insights.StartYear = cast.ToInt(answers.StartYear)
	settings.Insights.ActiveStartYear = cast.ToInt(answers.ActiveStartYear)
	if settings.Insights.ActiveStartYear == settings.Insights.StartYear {
		settings.Insights.ActiveStartYear = 0
	}
	settings.Insights.MonthsThreshold = cast.ToInt(answers.MonthsThreshold)
	settings.Fetch.BatchSize = cast.ToInt(answers.BatchSize)

	if err := settings.Validate(); err != nil {
		return err
	}
	result.Settings = &settings

	w.currentStep++
	return nil
}

func intQuestion(name, message string, def int) *survey.Question {
	return &survey.Question{
		Name: name,
		Prompt: &survey.Input{
			Message: message,
			Default: strconv.Itoa(def),
		},
		Validate: survey.ComposeValidators(survey.Required, isInteger),
	}
}

func isInteger(ans interface{}) error {
	if _, err := cast.ToIntE(ans); err != nil {
		return fmt.Errorf("%v is not a whole number", ans)
	}
	return nil
}

func (w *SetupWizard) showProgress(title string) {
	fmt.Fprintf(Output, "\n%s %s\n",
		ColorProgress(fmt.Sprintf("[%d/%d]", w.currentStep, w.totalSteps)),
		ColorBold(title),
	)
}
