package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grapecity-cn/docsmcp/internal/output"
	"github.com/grapecity-cn/docsmcp/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and diagnose issues",
		Long: `Run environment diagnostics before serving or indexing.

Checks:
  - settings: required environment variables parse
  - products: every configured descriptor pair resolves
  - raw_data: raw documentation directories exist (indexing only)
  - checkpoints: checkpoint directory is writable
  - store: vector store answers on its address

A failed required check exits non-zero; warnings do not.`,
		Example: `  # Run diagnostics
  docsmcp doctor

  # Include per-check details
  docsmcp doctor --verbose

  # JSON output for scripting
  docsmcp doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			checker := preflight.New()
			results := checker.RunAll(ctx)

			if jsonOutput {
				payload := struct {
					Status string             `json:"status"`
					Checks []preflight.Result `json:"checks"`
				}{Status: checker.SummaryStatus(results), Checks: results}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(payload); err != nil {
					return err
				}
			} else {
				printCheckResults(cmd, checker, results, verbose)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("environment check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printCheckResults(cmd *cobra.Command, checker *preflight.Checker, results []preflight.Result, verbose bool) {
	out := output.New(cmd.OutOrStdout())
	for _, r := range results {
		out.Statusf(statusIcon(r.Status), "%s: %s", r.Name, r.Message)
		if verbose && r.Details != "" {
			for _, line := range strings.Split(r.Details, "\n") {
				out.Status("", line)
			}
		}
	}
	out.Newline()
	out.Statusf("🩺", "Status: %s", checker.SummaryStatus(results))
}

func statusIcon(s preflight.Status) string {
	switch s {
	case preflight.StatusPass:
		return "✅"
	case preflight.StatusWarn:
		return "⚠️ "
	default:
		return "❌"
	}
}
