// Package cli implements the snapsync CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pic2nav/snapsync/internal/config"
	"github.com/pic2nav/snapsync/internal/connectivity"
	"github.com/pic2nav/snapsync/internal/pipeline"
	"github.com/pic2nav/snapsync/internal/recog"
	"github.com/pic2nav/snapsync/internal/store"
)

var (
	dbPath     string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "snapsync",
	Short: "Offline-first photo location recognition",
	Long:  "Submit captured photos for location recognition, with a local result cache and an offline queue that reconciles once connectivity returns.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SNAPSYNC_DB or ~/.snapsync/snapsync.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

// openPipeline wires a one-shot pipeline: SQLite store, HTTP recognizer, and
// a connectivity signal seeded by a single probe. The caller must Close the
// returned store.
func openPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, *store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	conn := connectivity.NewManual(connectivity.Probe(ctx, cfg.ProbeURL))
	p, err := pipeline.New(ctx, pipeline.Options{
		Config:       cfg,
		Store:        db,
		Client:       recog.NewHTTPClient(cfg.RecognizerURL, cfg.RemoteTimeout),
		Connectivity: conn,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return p, db, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
