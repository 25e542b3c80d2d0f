package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trainlog/trainlog"
	"github.com/trainlog/trainlog/internal/applog"
	_ "github.com/trainlog/trainlog/memlog"
	"github.com/trainlog/trainlog/sqlitelog"
)

// storeFlags are the flags every command that reads a log shares.
type storeFlags struct {
	db     string
	config string
	id     string
}

func addStoreFlags(cmd *cobra.Command, f *storeFlags) {
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&f.config, "config", "", "YAML config file, used when --db is not given")
	cmd.Flags().StringVar(&f.id, "id", "", "Log identity to open (defaults to a fresh one)")
}

func (f *storeFlags) loadConfig() (trainlog.Config, error) {
	if f.db != "" {
		return trainlog.Config{Backend: trainlog.BackendSQLite, Database: f.db}, nil
	}
	if f.config != "" {
		return trainlog.LoadConfig(f.config)
	}
	return trainlog.Config{}, fmt.Errorf("either --db or --config is required")
}

// open opens the configured log, at the --id identity when one is given.
func (f *storeFlags) open() (trainlog.Log, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	if f.id == "" {
		applog.Debug("opening %s backend with a fresh identity", cfg.Backend)
		return trainlog.Open(cfg)
	}

	identity, err := trainlog.IdentityFromString(f.id)
	if err != nil {
		return nil, err
	}
	if cfg.Backend != trainlog.BackendSQLite {
		return nil, fmt.Errorf("--id needs the %s backend, config names %s", trainlog.BackendSQLite, cfg.Backend)
	}
	applog.Debug("opening %s as %s", cfg.Database, identity)
	return sqlitelog.OpenAt(cfg, identity)
}
