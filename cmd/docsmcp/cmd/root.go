// Package cmd provides the CLI commands for docsmcp.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grapecity-cn/docsmcp/internal/profiling"
	"github.com/grapecity-cn/docsmcp/pkg/version"
)

// NewRootCmd creates the root command for the docsmcp CLI.
func NewRootCmd() *cobra.Command {
	var (
		profileCPU   string
		profileMem   string
		profileTrace string

		profiler     = profiling.New()
		cpuCleanup   func()
		traceCleanup func()
	)

	cmd := &cobra.Command{
		Use:   "docsmcp",
		Short: "Documentation retrieval MCP server",
		Long: `docsmcp serves product documentation to AI coding assistants over the
MCP Streamable HTTP transport, backed by hybrid vector + BM25 search.

Configure products via the PRODUCT and DOC_LANG environment variables,
index their documentation with 'docsmcp index', then run 'docsmcp serve'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docsmcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		var err error
		if profileCPU != "" {
			cpuCleanup, err = profiler.StartCPU(profileCPU)
			if err != nil {
				return fmt.Errorf("failed to start CPU profile: %w", err)
			}
		}
		if profileTrace != "" {
			traceCleanup, err = profiler.StartTrace(profileTrace)
			if err != nil {
				if cpuCleanup != nil {
					cpuCleanup()
				}
				return fmt.Errorf("failed to start trace: %w", err)
			}
		}
		return nil
	}

	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		if cpuCleanup != nil {
			cpuCleanup()
			cpuCleanup = nil
		}
		if traceCleanup != nil {
			traceCleanup()
			traceCleanup = nil
		}
		if profileMem != "" {
			if err := profiler.WriteHeap(profileMem); err != nil {
				return fmt.Errorf("failed to write memory profile: %w", err)
			}
		}
		return nil
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
