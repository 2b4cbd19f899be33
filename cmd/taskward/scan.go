package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskward/taskward/internal/integrity"
)

func scanCmd() *cobra.Command {
	var (
		tables     []string
		categories []string
		every      time.Duration
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run an integrity scan against the configured database",
		Long: `Scan sweeps persisted data for foreign-key violations, business-rule
non-compliance, orphaned records, circular references, and consistency
problems, then reports a health score. With --every, scan loops on a
ticker until interrupted, acting as the external runner for scheduled
checks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := integrity.CheckConfig{
				Tables:    tables,
				BatchSize: app.cfg.Integrity.BatchSize,
				MaxErrors: app.cfg.Integrity.MaxErrors,
			}
			for _, raw := range categories {
				c, ok := integrity.ParseCategory(raw)
				if !ok {
					return fmt.Errorf("unknown category %q", raw)
				}
				cfg.Categories = append(cfg.Categories, c)
			}

			monitor, ok := monitorFrom(app)
			if !ok {
				return fmt.Errorf("integrity monitoring is disabled in config")
			}

			runOnce := func(ctx context.Context) error {
				report, err := monitor.PerformIntegrityCheck(ctx, cfg)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(os.Stdout).Encode(report)
				}
				printReport(report)
				return nil
			}

			ctx := cmd.Context()
			if every <= 0 {
				return runOnce(ctx)
			}

			// Loop mode: this process is the scheduler the core
			// deliberately does not contain.
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			if err := runOnce(ctx); err != nil {
				return err
			}
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					fmt.Println("scan loop stopped")
					return nil
				case <-ticker.C:
					if err := runOnce(ctx); err != nil {
						fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringSliceVar(&tables, "tables", nil, "tables to scan (default: all)")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "check categories to run (default: all)")
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the scan on this interval until interrupted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full report as JSON")

	return cmd
}

// monitorFrom returns the concrete monitor for category-scoped scans; the
// system entry point always runs all categories.
func monitorFrom(app *app) (*integrity.Monitor, bool) {
	if !app.cfg.Integrity.Enabled || app.monitor == nil {
		return nil, false
	}
	return app.monitor, true
}

func printReport(report *integrity.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	score := report.Summary.HealthScore
	scoreText := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		scoreText = green(scoreText)
	case score >= 50:
		scoreText = yellow(scoreText)
	default:
		scoreText = red(scoreText)
	}

	fmt.Printf("Integrity check %s\n", report.CheckID)
	fmt.Printf("  Health score:    %s\n", scoreText)
	fmt.Printf("  Records checked: %d\n", report.Summary.RecordsChecked)
	fmt.Printf("  Violations:      %d\n", len(report.Violations))
	fmt.Printf("  Warnings:        %d\n", len(report.Warnings))
	fmt.Printf("  Duration:        %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Violations) > 0 {
		fmt.Println("\nViolations:")
		for _, v := range report.Violations {
			fmt.Printf("  %s [%s] %s/%s: %s\n",
				red("✗"), v.Severity, v.Table, v.RecordID, v.Message)
			if v.SuggestedFix != "" {
				fmt.Printf("      fix: %s\n", v.SuggestedFix)
			}
		}
	}

	if len(report.Summary.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range report.Summary.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
