package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/estimate-engine/internal/config"
	"github.com/iwvelando/estimate-engine/internal/engine"
	"github.com/iwvelando/estimate-engine/internal/server"
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/iwvelando/estimate-engine/pkg/output"
	"github.com/iwvelando/estimate-engine/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// loadEnvFile loads path into the environment when it exists so ESTIMATE_*
// variables can override request files.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "estimate-engine",
		Short:         "Property valuation and go-to-market timeline engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(constants.DefaultEnvFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(computeCmd(&logLevel))
	rootCmd.AddCommand(validateCmd(&logLevel))
	rootCmd.AddCommand(serveCmd(&logLevel))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}

func computeCmd(logLevel *string) *cobra.Command {
	var configLocation, outputFormat string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Value every active property of a request file and plan its timeline",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCompute(configLocation, outputFormat, *logLevel)
		},
	}

	cmd.Flags().StringVar(&configLocation, "config", constants.DefaultConfigFile, "path to request file")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	return cmd
}

func validateCmd(logLevel *string) *cobra.Command {
	var configLocation string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report request file warnings without computing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := loadWithLogger(configLocation, *logLevel)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			warnings, err := validateConfiguration(logger, conf, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(warnings) == 0 {
				fmt.Fprintf(out, "%s: no warnings\n", configLocation)
				return nil
			}
			for _, warning := range warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configLocation, "config", constants.DefaultConfigFile, "path to request file")
	return cmd
}

func serveCmd(logLevel *string) *cobra.Command {
	var serverConfigLocation, address, maxUploadSize string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the valuation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, serverConfigLocation, address, maxUploadSize, *logLevel)
		},
	}

	cmd.Flags().StringVar(&serverConfigLocation, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	cmd.Flags().StringVar(&maxUploadSize, "max-upload-size", "", "upload size limit override (e.g. 512K, 2M)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func loadWithLogger(configLocation, logLevel string) (*config.Configuration, *zap.Logger, error) {
	conf, err := config.LoadConfiguration(configLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
	}

	logger, err := initializeLogger(conf.Logging, logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return conf, logger, nil
}

func validateConfiguration(logger *zap.Logger, conf *config.Configuration, now time.Time) ([]string, error) {
	eng, err := engine.New(logger, conf.Calibration)
	if err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	return conf.ValidateConfiguration(eng, now), nil
}

// computeResults runs every active property of conf through a fresh engine.
func computeResults(logger *zap.Logger, conf *config.Configuration, now time.Time) ([]engine.Result, error) {
	eng, err := engine.New(logger, conf.Calibration)
	if err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration(eng, now) {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	results, err := eng.ComputeAll(conf.Properties, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute valuations: %w", err)
	}
	return results, nil
}

func runCompute(configLocation, outputFormatFlag, logLevel string) error {
	conf, logger, err := loadWithLogger(configLocation, logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if outputFormatFlag != "" {
		outputFormat = outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	results, err := computeResults(logger, conf, time.Now())
	if err != nil {
		logger.Error("failed to compute valuations",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return err
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		return output.PrettyFormat(results)
	case constants.OutputFormatCSV:
		return output.CsvFormat(results)
	case constants.OutputFormatJSON:
		return output.JSONFormat(results)
	}
	return nil
}

func runServe(ctx context.Context, serverConfigLocation, address, maxUploadSize, logLevel string) error {
	cfg, err := server.LoadConfig(serverConfigLocation)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}
	if maxUploadSize != "" {
		size, err := server.ParseSize(maxUploadSize)
		if err != nil {
			return fmt.Errorf("invalid --max-upload-size: %w", err)
		}
		cfg.SetUploadSizeBytes(size)
	}

	logger, err := initializeLogger(cfg.Logging, logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	eng, err := engine.New(logger, cfg.Calibration)
	if err != nil {
		return fmt.Errorf("invalid calibration: %w", err)
	}

	handler, err := server.NewHandler(logger, eng, cfg.UploadSizeBytes(), version)
	if err != nil {
		return err
	}
	return server.Run(ctx, logger, cfg.Address, handler)
}
