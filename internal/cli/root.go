// Package cli provides the command-line interface for the earnings tracker.
package cli

import (
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"earnings-tracker/internal/analysis"
	"earnings-tracker/internal/config"
	"earnings-tracker/internal/earnings"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/security"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-18"
)

// App holds the application dependencies. Services are built after flags are
// parsed so --config and --mock take effect.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Earnings *earnings.Service
	Sources  earnings.Sources

	configDir string
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// --config (or the default directory) when a command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "earnings",
		Short: "Earnings tracker - daily earnings board with live quotes",
		Long: `Earnings tracker shows the companies reporting on a given day with their
consensus estimates, reported results and live pricing, split into S&P 500
members and everything else.

Use 'earnings board' for today's board and 'earnings watch' to keep it fresh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configDir, "config", "", "config directory (default: ~/.config/earnings-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("mock", false, "use synthetic market data")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addBoardCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	rootCmd.AddCommand(newAnalyzeCmd(app))

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	if a.Config == nil {
		cfg, err := config.Load(a.configDir)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
	}

	if !a.Config.UI.ColorEnabled {
		color.NoColor = true
	}
	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		a.Config.Mock.Enabled = true
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// service builds the board service on first use.
func (a *App) service() (*earnings.Service, error) {
	if a.Earnings != nil {
		return a.Earnings, nil
	}
	svc, src, err := earnings.NewFromConfig(a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Earnings, a.Sources = svc, src
	return svc, nil
}

func (a *App) analyzer(cmd *cobra.Command) (*analysis.Service, error) {
	return analysis.NewServiceFromConfig(cmd.Context(), a.Config, a.Logger)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Earnings Tracker v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.configDir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// redacted returns cfg for display with API keys replaced by whether they are set.
func redacted(cfg *config.Config) map[string]interface{} {
	shown := *cfg
	shown.Credentials = config.Credentials{}
	shown.Cache.RedisURL = security.MaskURL(cfg.Cache.RedisURL)
	return map[string]interface{}{
		"config": shown,
		"credentials": map[string]bool{
			"gateway": cfg.Credentials.Gateway.APIKey != "",
			"openai":  cfg.Credentials.OpenAI.APIKey != "",
			"gemini":  cfg.Credentials.Gemini.APIKey != "",
			"serper":  cfg.Credentials.Serper.APIKey != "",
		},
	}
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Data Source")
	output.Printf("  Mock Mode:       %v\n", cfg.IsMockMode())
	output.Printf("  Gateway:         %s\n", cfg.API.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.API.Timeout)
	output.Printf("  Retries:         %d (%s, %s)\n", cfg.API.RetryAttempts, cfg.API.Backoff, cfg.API.RetryDelay)
	output.Printf("  Calendar:        %s\n", cfg.Calendar.Provider)
	output.Println()

	output.Bold("Quote Fetching")
	output.Printf("  Mode:            %s\n", cfg.Fetcher.Mode)
	output.Printf("  Chunk Size:      %d\n", cfg.Fetcher.ChunkSize)
	output.Printf("  Chunk Delay:     %s\n", cfg.Fetcher.ChunkDelay)
	output.Printf("  History Days:    %d\n", cfg.Fetcher.HistoryDays)
	output.Println()

	output.Bold("Session")
	output.Printf("  Timezone:        %s\n", cfg.Session.Timezone)
	output.Printf("  Holidays:        %d\n", len(cfg.Session.Holidays))
	output.Println()

	output.Bold("Cache")
	output.Printf("  Enabled:         %v\n", cfg.Cache.Enabled)
	if cfg.Cache.RedisURL != "" {
		output.Printf("  Redis:           %s\n", security.MaskURL(cfg.Cache.RedisURL))
	}
	output.Printf("  S&P 500 Source:  %s\n", cfg.SP500.Source)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Provider:        %s\n", cfg.Analysis.Provider)
	output.Printf("  OpenAI Key:      %v\n", cfg.Credentials.OpenAI.APIKey != "")
	output.Printf("  Gemini Key:      %v\n", cfg.Credentials.Gemini.APIKey != "")
	output.Printf("  Search Key:      %v\n", cfg.Credentials.Serper.APIKey != "")
}
