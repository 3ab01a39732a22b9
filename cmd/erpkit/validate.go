package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artpar/erpkit/adapters/sqlite"
	"github.com/artpar/erpkit/bootstrap"
	"github.com/artpar/erpkit/config"
	"github.com/artpar/erpkit/core/registry"
	"github.com/artpar/erpkit/core/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and module descriptors",
	Long: `Validate the erpkit configuration and the module descriptors it names.

Checks:
  - YAML syntax is valid
  - Every module descriptor parses and passes validation
  - Module names and routes do not collide, parents exist
  - Databases can be opened (optional)

Examples:
  erpkit validate
  erpkit validate --config /etc/erpkit/erpkit.yaml --check-database`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the databases can be opened")
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Fprintf(w, "  %s Config file missing, using defaults and environment\n", warnMark)
	} else {
		fmt.Fprintf(w, "  %s Config file exists\n", checkMark)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(w, "  %s Config syntax valid\n", checkMark)
	fmt.Fprintf(w, "  %s Database: %s (%s)\n", checkMark, cfg.Database.DSN, cfg.Database.Driver)
	fmt.Fprintf(w, "  %s Preferences: %s\n", checkMark, cfg.Database.PrefsDSN)

	mods, source, err := bootstrap.LoadModules(cfg.Modules.Dir)
	if err != nil {
		fmt.Fprintf(w, "  %s Module descriptors valid\n", crossMark)
		return err
	}
	fmt.Fprintf(w, "  %s Module descriptors valid: %d (%s)\n", checkMark, len(mods), source)

	reg, err := registry.New(bootstrap.NewResolver(cfg.Navigation), mods...)
	if err != nil {
		fmt.Fprintf(w, "  %s Module registry\n", crossMark)
		var conflicts *registry.ConflictError
		if errors.As(err, &conflicts) {
			for _, c := range conflicts.Conflicts {
				fmt.Fprintf(w, "      %s\n", c.Error())
			}
		}
		return err
	}
	fmt.Fprintf(w, "  %s Module registry: %d routes\n", checkMark, reg.Len())

	if validateCheckDatabase {
		if err := checkDatabases(cfg); err != nil {
			fmt.Fprintf(w, "  %s Databases reachable\n", crossMark)
			fmt.Fprintf(w, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(w, "  %s Databases reachable\n", checkMark)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration is valid.")
	return nil
}

func checkDatabases(cfg *config.Config) error {
	prefsDB, err := sqlite.Open(cfg.Database.PrefsDSN)
	if err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	prefsDB.Close()

	var store interface{ Close() error }
	switch cfg.Database.Driver {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.Database.DSN, storage.PostgresOptions{}, zerolog.New(io.Discard))
	default:
		store, err = storage.NewSQLiteStore(cfg.Database.DSN)
	}
	if err != nil {
		return fmt.Errorf("records: %w", err)
	}
	return store.Close()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)
