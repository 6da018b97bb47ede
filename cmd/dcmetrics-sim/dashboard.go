package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/dashboard"
)

var (
	dashboardOut   string
	dashboardTable string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render a Grafana dashboard for the GreptimeDB table",
	Long:  "dashboard writes grafana-dashboard.json; set GREPTIMEDB_DATASOURCE_UID to the Grafana datasource uid.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.Render(dashboardOut, dashboardTable); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboard written to %s\n", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "dashboards", "Output directory")
	dashboardCmd.Flags().StringVar(&dashboardTable, "table", config.DefaultGreptimeTable, "GreptimeDB table queried by the panels")
}
