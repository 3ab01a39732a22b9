package main

import (
	"fmt"
	"io"
	"os"

	"github.com/artpar/erpkit/bootstrap"
	"github.com/artpar/erpkit/config"
	"github.com/artpar/erpkit/core/formatter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
	output   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "erpkit",
	Short: "Module-driven CRUD service for ERP back offices",
	Long: `erpkit serves list, form and export endpoints for modules described
in YAML: lists with search, filters, sorting and paging, forms with
validation, embedded child lists, and Excel, PDF, CSV or JSON exports.

Quick start:
  erpkit serve              # Start the HTTP server
  erpkit modules list       # Show the loaded modules

Tools:
  erpkit list nhan_su       # Print one page of a module list
  erpkit export nhan_su     # Write an export file
  erpkit resolve /nhan-su/5 # Resolve a path to module, mode and breadcrumbs
  erpkit validate           # Check configuration and module descriptors`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "erpkit.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: table, json, yaml")
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// openApp initializes the application for one-shot commands. Logs go to
// stderr at warn unless --log-level says otherwise.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	level := logLevel
	if level == "" {
		level = "warn"
	}
	stderr := cmd.ErrOrStderr()
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		LogOutput:  stderr,
		Console:    isTerminal(stderr),
		LogLevel:   level,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return app, nil
}

// loadConfig reads the configuration file, or defaults plus environment
// when the file is missing.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.LoadWithFallback(cfgFile)
}

// outputFormatter returns the formatter selected by --output.
func outputFormatter() (formatter.Formatter, error) {
	f, ok := formatter.Get(output)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", output, formatter.List())
	}
	return f, nil
}
