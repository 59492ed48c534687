package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/contract"
)

func newReportCmd(app *App) *cobra.Command {
	var projectID, asOfStr, method, currency string
	var reserves bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the cost control report",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDateFlag(asOfStr)
			if err != nil {
				return err
			}
			stop := formatter.StartSpinner("Building report")
			report, err := app.Reports.BuildReport(context.Background(), contract.ReportRequest{
				ProjectID:       projectID,
				AsOf:            asOf,
				ForecastMethod:  method,
				IncludeReserves: reserves,
				Currency:        currency,
			})
			stop()
			if err != nil {
				return err
			}
			fmt.Print(formatter.RenderCostReport(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "Data date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&method, "method", "", "Forecast method (default actual_plus_remaining)")
	cmd.Flags().StringVar(&currency, "currency", "", "Report currency (default first account's)")
	cmd.Flags().BoolVar(&reserves, "reserves", false, "Include contingency and management reserves in BAC")
	_ = cmd.MarkFlagRequired("project")

	cmd.AddCommand(newReportSummaryCmd(app))

	return cmd
}

func newReportSummaryCmd(app *App) *cobra.Command {
	var projectID, asOfStr, method, currency string
	var reserves bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Render the project-level earned-value roll-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDateFlag(asOfStr)
			if err != nil {
				return err
			}
			stop := formatter.StartSpinner("Rolling up project")
			summary, err := app.EVM.RollupProject(context.Background(), contract.ReportRequest{
				ProjectID:       projectID,
				AsOf:            asOf,
				ForecastMethod:  method,
				IncludeReserves: reserves,
				Currency:        currency,
			})
			stop()
			if err != nil {
				return err
			}
			fmt.Println(formatter.RenderProjectSummary(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "Data date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&method, "method", "", "Forecast method (default actual_plus_remaining)")
	cmd.Flags().StringVar(&currency, "currency", "", "Report currency (default first account's)")
	cmd.Flags().BoolVar(&reserves, "reserves", false, "Include contingency and management reserves in BAC")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
