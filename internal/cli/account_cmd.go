package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newAccountCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage control accounts",
	}

	cmd.AddCommand(
		newAccountCreateCmd(app),
		newAccountListCmd(app),
		newAccountAssignCmd(app),
		newAccountProgressCmd(app),
		newAccountActivateCmd(app),
		newAccountCloseCmd(app),
		newAccountMapCmd(app),
	)

	return cmd
}

func newAccountCreateCmd(app *App) *cobra.Command {
	var projectID, code, description, nodeCode, method, currency, cam string
	var bacStr, contingencyStr, managementStr string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a control account over a cost node subtree",
		RunE: func(cmd *cobra.Command, args []string) error {
			bac, err := decimal.NewFromString(bacStr)
			if err != nil {
				return fmt.Errorf("parsing bac %q: %w", bacStr, err)
			}
			contingency, err := decimal.NewFromString(contingencyStr)
			if err != nil {
				return fmt.Errorf("parsing contingency %q: %w", contingencyStr, err)
			}
			management, err := decimal.NewFromString(managementStr)
			if err != nil {
				return fmt.Errorf("parsing management %q: %w", managementStr, err)
			}
			node, err := app.Tree.GetNodeByCode(context.Background(), projectID, nodeCode)
			if err != nil {
				return err
			}

			a := &domain.ControlAccount{
				ProjectID:          projectID,
				CostNodeID:         node.ID,
				Code:               code,
				Description:        description,
				BAC:                bac,
				ContingencyReserve: contingency,
				ManagementReserve:  management,
				MeasurementMethod:  domain.MeasurementMethod(method),
				CAMUserID:          cam,
				Currency:           currency,
			}
			if err := app.Accounts.Create(context.Background(), a); err != nil {
				return err
			}
			fmt.Printf("Created control account %s (%s)\n", a.Code, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Account code (required)")
	cmd.Flags().StringVar(&description, "description", "", "Account description")
	cmd.Flags().StringVar(&nodeCode, "node", "", "Owned cost node code (required)")
	cmd.Flags().StringVar(&method, "method", "percent_complete", "Measurement method")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Account currency")
	cmd.Flags().StringVar(&cam, "cam", "", "Control account manager")
	cmd.Flags().StringVar(&bacStr, "bac", "0", "Budget at completion, reserves excluded")
	cmd.Flags().StringVar(&contingencyStr, "contingency", "0", "Contingency reserve")
	cmd.Flags().StringVar(&managementStr, "management", "0", "Management reserve")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newAccountListCmd(app *App) *cobra.Command {
	var projectID string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the project's control accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := app.Accounts.ListByProject
			if activeOnly {
				list = app.Accounts.ListActiveByProject
			}
			accounts, err := list(context.Background(), projectID)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Println(formatter.Dim("No control accounts."))
				return nil
			}
			rows := make([][]string, 0, len(accounts))
			for _, a := range accounts {
				rows = append(rows, []string{
					a.Code,
					a.Description,
					formatter.AccountStatusPill(a.Status),
					formatter.Money(a.BAC),
					formatter.Percent(a.PercentComplete),
					string(a.MeasurementMethod),
					formatter.Dim(a.Currency),
				})
			}
			fmt.Print(formatter.RenderTable([]string{"CODE", "DESCRIPTION", "STATUS", "BAC", "PHYS %", "METHOD", "CCY"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active accounts")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newAccountAssignCmd(app *App) *cobra.Command {
	var projectID, code, workPackageID, amountStr string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Allocate part of the account's BAC to a work package",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			a, err := app.Accounts.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Accounts.AssignWorkPackage(context.Background(), a.ID, workPackageID, amount); err != nil {
				return err
			}
			fmt.Printf("Allocated %s to work package %s on %s\n", formatter.Money(amount), workPackageID, a.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "account", "", "Account code (required)")
	cmd.Flags().StringVar(&workPackageID, "work-package", "", "Work package ID (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Allocation amount (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("work-package")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newAccountProgressCmd(app *App) *cobra.Command {
	var projectID, code, pctStr string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Record physical progress on an active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := decimal.NewFromString(pctStr)
			if err != nil {
				return fmt.Errorf("parsing percent %q: %w", pctStr, err)
			}
			a, err := app.Accounts.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Accounts.RecordProgress(context.Background(), a.ID, pct); err != nil {
				return err
			}
			fmt.Printf("Recorded %s complete on %s\n", formatter.Percent(pct), a.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "account", "", "Account code (required)")
	cmd.Flags().StringVar(&pctStr, "percent", "", "Physical percent complete 0-100 (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("percent")

	return cmd
}

func newAccountActivateCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a draft control account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Accounts.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Accounts.Activate(context.Background(), a.ID); err != nil {
				return err
			}
			fmt.Printf("Activated %s\n", a.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "account", "", "Account code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountCloseCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a completed control account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Accounts.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Accounts.Close(context.Background(), a.ID); err != nil {
				return err
			}
			fmt.Printf("Closed %s\n", a.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "account", "", "Account code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountMapCmd(app *App) *cobra.Command {
	var projectID, workPackageID, nodeCode, pctStr string

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map a WBS work package onto a CBS cost node",
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := decimal.NewFromString(pctStr)
			if err != nil {
				return fmt.Errorf("parsing percent %q: %w", pctStr, err)
			}
			node, err := app.Tree.GetNodeByCode(context.Background(), projectID, nodeCode)
			if err != nil {
				return err
			}
			if err := app.Accounts.MapWBS(context.Background(), workPackageID, node.ID, pct); err != nil {
				return err
			}
			fmt.Printf("Mapped %s of work package %s to %s\n", formatter.Percent(pct), workPackageID, node.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&workPackageID, "work-package", "", "Work package ID (required)")
	cmd.Flags().StringVar(&nodeCode, "node", "", "Cost node code (required)")
	cmd.Flags().StringVar(&pctStr, "percent", "", "Mapping percent (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("work-package")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("percent")

	return cmd
}
