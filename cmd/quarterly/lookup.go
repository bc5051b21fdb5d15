package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/quarterly/internal/analysis"
	"github.com/newthinker/quarterly/internal/app"
	"github.com/newthinker/quarterly/internal/core"
)

var (
	lookupJSON    bool
	lookupTimeout time.Duration
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [symbol]",
	Short: "Fetch and reconcile earnings for one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Build the earnings calendar around today",
	Args:  cobra.NoArgs,
	RunE:  runCalendar,
}

func init() {
	for _, c := range []*cobra.Command{lookupCmd, calendarCmd} {
		c.Flags().BoolVar(&lookupJSON, "json", false, "print raw JSON")
		c.Flags().DurationVar(&lookupTimeout, "timeout", 30*time.Second, "overall timeout")
		rootCmd.AddCommand(c)
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
	defer cancel()

	report, err := a.Earnings().Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	if lookupJSON {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func runCalendar(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
	defer cancel()

	cal, err := a.Earnings().Calendar(ctx)
	if err != nil {
		return err
	}
	if lookupJSON {
		return printJSON(cal)
	}

	dates := make([]string, 0, len(cal))
	for d := range cal {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		fmt.Printf("%s (%d)\n", d, len(cal[d]))
		for _, e := range cal[d] {
			mcap := "-"
			if e.MarketCap != nil {
				mcap = analysis.FormatRevenue(*e.MarketCap)
			}
			fmt.Printf("  %-8s %-32.32s %-24s %s\n", e.Symbol, e.Name, e.Sector, mcap)
		}
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(r *core.EarningsReport) {
	fmt.Printf("=== %s ===\n", r.Symbol)
	for _, s := range r.Sources {
		status := "ok"
		if !s.OK {
			status = s.Error
		}
		fmt.Printf("source %-10s %s (%s)\n", s.Name, status, s.Duration.Round(time.Millisecond))
	}
	fmt.Println()

	fmt.Println("EPS")
	for _, q := range r.EPSHistory {
		fmt.Printf("  %s  actual %-8s estimate %-8s %s\n", q.Period, optEPS(q.Actual), optEPS(q.Estimate), beat(q.Beat))
	}
	fmt.Println("Revenue")
	for _, q := range r.RevenueHistory {
		fmt.Printf("  Q%d %d  actual %-10s estimate %-10s %s\n", q.Quarter, q.Year, optRev(q.RevenueActual), optRev(q.RevenueEstimate), beat(q.Beat))
	}
	fmt.Println()

	fmt.Printf("Streak: %s x%d\n", r.Streak.Type, r.Streak.Count)
	if r.NextEarningsDate != "" {
		fmt.Printf("Next earnings: %s\n", r.NextEarningsDate)
	}
	for _, h := range r.Highlights {
		fmt.Printf("* %s: %s\n", h.Title, h.Detail)
	}
}

func optEPS(v *float64) string {
	if v == nil {
		return "-"
	}
	return analysis.FormatEPS(*v)
}

func optRev(v *float64) string {
	if v == nil {
		return "-"
	}
	return analysis.FormatRevenue(*v)
}

func beat(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "beat"
	}
	return "miss"
}
