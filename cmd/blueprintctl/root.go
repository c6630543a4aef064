// Package main implements blueprintctl, a small operator-facing CLI for
// validating a Blueprint host configuration before wiring it into a
// long-running process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blueprint-framework/blueprint/blueprint"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "blueprintctl",
		Short:         "Inspect and validate Blueprint host configuration",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newValidateCmd())
	return cmd
}

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a blueprint config file and report its settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := blueprint.LoadConfig(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appName=%s assemblyName=%s optimizationLevel=%s compileStrategy=%s\n",
				cfg.AppName, cfg.AssemblyName, cfg.OptimizationLevel, cfg.CompileStrategy)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "blueprint.yaml", "Path to the blueprint config file")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
