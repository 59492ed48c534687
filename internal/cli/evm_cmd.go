package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newEVMCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evm",
		Short: "Compute and manage earned-value snapshots",
	}

	cmd.AddCommand(
		newEVMComputeCmd(app),
		newEVMApproveCmd(app),
		newEVMListCmd(app),
	)

	return cmd
}

func newEVMComputeCmd(app *App) *cobra.Command {
	var projectID, accountCode, asOfStr, method string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute and store an account's earned-value snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDateFlag(asOfStr)
			if err != nil {
				return err
			}
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}
			stop := formatter.StartSpinner("Computing earned value")
			rec, err := app.EVM.ComputeRecord(context.Background(), a.ID, asOf, domain.ForecastMethod(method))
			stop()
			if err != nil {
				return err
			}
			fmt.Printf("%s at %s  PV %s  EV %s  AC %s  EAC %s  CPI %s  SPI %s\n",
				a.Code, rec.DataDate.Format("2006-01-02"),
				formatter.Money(rec.PV), formatter.Money(rec.EV), formatter.Money(rec.AC),
				formatter.Money(rec.EAC), formatter.Index(rec.CPI()), formatter.Index(rec.SPI()))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "Data date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&method, "method", "actual_plus_remaining", "Forecast method")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newEVMApproveCmd(app *App) *cobra.Command {
	var projectID, accountCode, asOfStr string

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a snapshot, making it immutable",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDateFlag(asOfStr)
			if err != nil {
				return err
			}
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}
			if err := app.EVM.ApproveRecord(context.Background(), a.ID, asOf); err != nil {
				return err
			}
			fmt.Printf("Approved snapshot of %s at %s\n", a.Code, asOf.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "Data date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newEVMListCmd(app *App) *cobra.Command {
	var projectID, accountCode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}
			records, err := app.EVM.ListRecords(context.Background(), a.ID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println(formatter.Dim("No snapshots."))
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				approved := formatter.Dim("draft")
				if r.IsApproved {
					approved = "approved"
				}
				rows = append(rows, []string{
					r.DataDate.Format("2006-01-02"),
					formatter.Money(r.PV),
					formatter.Money(r.EV),
					formatter.Money(r.AC),
					formatter.Money(r.EAC),
					formatter.Index(r.CPI()),
					formatter.Index(r.SPI()),
					string(r.ForecastMethod),
					approved,
				})
			}
			fmt.Print(formatter.RenderTable([]string{"DATE", "PV", "EV", "AC", "EAC", "CPI", "SPI", "METHOD", "STATE"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
