package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridpilot/gridpilot/config"
	"github.com/gridpilot/gridpilot/core/planlog"
	"github.com/gridpilot/gridpilot/pkg/export"
)

var (
	exportFormat string
	exportSince  time.Duration
	exportFailed bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted cycle records to stdout",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "restrict to records newer than this (e.g. 24h)")
	exportCmd.Flags().BoolVar(&exportFailed, "failed", false, "only failed cycles")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var store planlog.Store
	switch cfg.Logging.Backend {
	case "sqlite":
		store, err = planlog.NewSQLiteStore(cfg.Logging.Path)
	default:
		store, err = planlog.NewJSONLStore(cfg.Logging.Path)
	}
	if err != nil {
		return fmt.Errorf("open plan log: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := planlog.Query{Failed: exportFailed}
	if exportSince > 0 {
		q.Start = time.Now().Add(-exportSince)
	}
	records, err := store.Query(context.Background(), q)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	switch exportFormat {
	case "csv":
		return export.WriteCSV(os.Stdout, records)
	case "json":
		return export.WriteJSON(os.Stdout, records)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}
