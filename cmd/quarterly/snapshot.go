package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/quarterly/internal/app"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [symbol...]",
	Short: "Reconcile symbols and write the reports to the archive",
	RunE:  runSnapshot,
}

var snapshotCalendar bool

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotCalendar, "calendar", false, "also archive the current earnings calendar")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !snapshotCalendar {
		return fmt.Errorf("give at least one symbol or --calendar")
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	if snapshotCalendar {
		path, err := a.SnapshotCalendar(cmd.Context())
		if err != nil {
			return fmt.Errorf("calendar snapshot: %w", err)
		}
		fmt.Printf("%-8s %s\n", "calendar", path)
	}

	results, err := a.Snapshot(cmd.Context(), args)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%-8s FAILED %v\n", r.Symbol, r.Err)
			continue
		}
		fmt.Printf("%-8s %s\n", r.Symbol, r.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed", failed, len(results))
	}
	return nil
}
