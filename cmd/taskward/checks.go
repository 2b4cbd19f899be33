package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func checksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List the scheduled integrity checks registered from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			monitor, ok := monitorFrom(app)
			if !ok {
				return fmt.Errorf("integrity monitoring is disabled in config")
			}

			checks := monitor.ScheduledChecks()
			if len(checks) == 0 {
				fmt.Println("no scheduled checks configured")
				return nil
			}

			for _, check := range checks {
				status := color.GreenString("✓")
				if !check.Enabled {
					status = color.YellowString("○")
				}
				fmt.Printf("%s %-30s cron=%-16s tables=%v\n",
					status, check.Name, check.CronExpr, check.Config.Tables)
			}
			return nil
		},
	}
}
