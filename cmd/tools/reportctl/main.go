// Command reportctl runs the report pipeline from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"roof-report-service/internal/bootstrap"
	"roof-report-service/internal/common/config"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/validation"
	"roof-report-service/internal/server"
	generatereport "roof-report-service/internal/workers/reports/generate-report"
)

var (
	configPath string
	inputPath  string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:           "reportctl",
	Short:         "Roof inspection report tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report from a submission JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd.InOrStdin())
		if err != nil {
			return err
		}

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		outcome := app.Orchestrator.GenerateJSON(cmd.Context(), raw, generatereport.SourceCLI)
		if err := printJSON(cmd.OutOrStdout(), outcome); err != nil {
			return err
		}
		if !outcome.Success {
			return fmt.Errorf("report generation failed: %s", outcome.Error)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a submission JSON file without generating a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err := validation.ValidateSubmission(raw)
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("invalid submission:\n  %s", strings.Join(result.GetErrorMessages(), "\n  "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "submission is valid")
		return nil
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Upload a test image and report which integrations are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		report := map[string]interface{}{"envVars": app.Presence()}
		url, uploadErr := app.Images.Upload(cmd.Context(), server.TestImage)
		if uploadErr != nil {
			report["success"] = false
			report["error"] = uploadErr.Error()
		} else {
			report["success"] = true
			report["imageUrl"] = url
		}
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		return uploadErr
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "discard logs, print only results")

	for _, cmd := range []*cobra.Command{generateCmd, validateCmd} {
		cmd.Flags().StringVarP(&inputPath, "file", "f", "-", "submission JSON file, - for stdin")
	}

	rootCmd.AddCommand(generateCmd, validateCmd, diagnoseCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*bootstrap.App, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	var log logger.Logger
	switch {
	case quiet:
		log = logger.NewNoOpLogger()
	case verbose:
		log = logger.NewZapAdapter(logger.New("debug", "console", "stderr"))
	default:
		log = logger.NewZapAdapter(logger.New("warn", "console", "stderr"))
	}

	return bootstrap.Build(ctx, cfg, log, bootstrap.Options{ConnectRetries: 1})
}

func readInput(stdin io.Reader) ([]byte, error) {
	if inputPath == "" || inputPath == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(inputPath)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
