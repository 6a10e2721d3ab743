package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/internal/config"
	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root has set it up.
type app struct {
	configPath   string
	logLevel     string
	outputFormat string

	conf   *config.Configuration
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "grimcheck",
		Short:        "Check reported means and standard deviations for arithmetic consistency",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.outputFormat, "output-format", "", "type of output override: pretty, csv, json")

	cmd.AddCommand(
		grimCmd(a),
		grimmerCmd(a),
		debitCmd(a),
		statsCmd(a),
		simrankCmd(a),
		auditCmd(a),
		serveCmd(a),
		versionCmd(),
	)
	return cmd
}

// setup loads .env, the configuration and the logger.
func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	conf, err := config.LoadConfiguration(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", a.configPath, err)
	}
	if a.outputFormat != "" {
		conf.Output.Format = a.outputFormat
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}
	if a.logLevel != "" {
		conf.Logging.Level = a.logLevel
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}

	a.conf = conf
	a.logger = logger
	return nil
}

// writeRows renders single-value verdicts as a report.
func (a *app) writeRows(cmd *cobra.Command, check audit.Check, rows ...audit.ReportRow) error {
	report := &audit.Report{ID: uuid.NewString(), Check: check, Rows: rows, Failed: []int{}}
	for i := range report.Rows {
		report.Rows[i].Row = i
		if report.Rows[i].Consistent {
			report.Consistent++
		} else {
			report.Inconsistent++
		}
	}
	return output.Write(cmd.OutOrStdout(), a.conf.Output.Format, report)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the grimcheck version",
		Args:  cobra.NoArgs,
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
