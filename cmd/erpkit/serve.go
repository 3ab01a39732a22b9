package main

import (
	"fmt"
	"os"

	"github.com/artpar/erpkit/bootstrap"
	"github.com/spf13/cobra"
)

var watchConfig bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the erpkit HTTP server.

The server will:
  - Load configuration from erpkit.yaml (or --config) with ERPKIT_* overrides
  - Load module descriptors from modules.dir, or the built-in set
  - Open the record and preference databases
  - Serve the module API, the change feed and health checks

Environment variables:
  ERPKIT_SERVER_PORT         - Server port (default: 8080)
  ERPKIT_DATABASE_DRIVER     - sqlite or postgres
  ERPKIT_DATABASE_DSN        - Record database
  ERPKIT_DATABASE_PREFS_DSN  - Preference database (SQLite)
  ERPKIT_MODULES_DIR         - Module descriptor directory
  ERPKIT_LOG_LEVEL           - Log level: debug, info, warn, error

Examples:
  erpkit serve
  erpkit serve --config /etc/erpkit/erpkit.yaml
  erpkit serve --watch=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&watchConfig, "watch", true, "reload configuration when the file changes or on SIGHUP")
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "No config file at %s, using defaults and environment\n", cfgFile)
	}

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Watch:      watchConfig,
		Console:    isTerminal(os.Stdout),
		LogLevel:   logLevel,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context())
}
