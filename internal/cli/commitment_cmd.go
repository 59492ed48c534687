package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newCommitmentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commitment",
		Short: "Manage purchase and contract commitments",
	}

	cmd.AddCommand(
		newCommitmentCreateCmd(app),
		newCommitmentListCmd(app),
		newCommitmentApproveCmd(app),
		newCommitmentActivateCmd(app),
		newCommitmentReviseCmd(app),
		newCommitmentAllocateCmd(app),
		newCommitmentCloseCmd(app),
	)

	return cmd
}

func newCommitmentCreateCmd(app *App) *cobra.Command {
	var projectID, code, vendor, description, accountCode, currency, createdBy string
	var amountStr, retentionStr string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft commitment against a control account",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			retention, err := decimal.NewFromString(retentionStr)
			if err != nil {
				return fmt.Errorf("parsing retention %q: %w", retentionStr, err)
			}
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}

			c := &domain.Commitment{
				ProjectID:           projectID,
				ControlAccountID:    a.ID,
				Code:                code,
				VendorName:          vendor,
				Description:         description,
				Currency:            currency,
				OriginalAmount:      amount,
				RetentionPercentage: retention,
				CreatedBy:           createdBy,
			}
			if err := app.Commitments.Create(context.Background(), c, nil); err != nil {
				return err
			}
			fmt.Printf("Created commitment %s (%s)\n", c.Code, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "Vendor name")
	cmd.Flags().StringVar(&description, "description", "", "Commitment description")
	cmd.Flags().StringVar(&accountCode, "account", "", "Control account code (required)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Commitment currency")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Original amount (required)")
	cmd.Flags().StringVar(&retentionStr, "retention", "0", "Retention percentage")
	cmd.Flags().StringVar(&createdBy, "by", "", "Creator")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newCommitmentListCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the project's commitments",
		RunE: func(cmd *cobra.Command, args []string) error {
			commitments, err := app.Commitments.ListByProject(context.Background(), projectID)
			if err != nil {
				return err
			}
			if len(commitments) == 0 {
				fmt.Println(formatter.Dim("No commitments."))
				return nil
			}
			rows := make([][]string, 0, len(commitments))
			for _, c := range commitments {
				rows = append(rows, []string{
					c.Code,
					c.VendorName,
					formatter.CommitmentStatusPill(c.Status),
					formatter.Money(c.CommittedAmount),
					formatter.Money(c.InvoicedAmount),
					formatter.Money(c.PaidAmount),
					formatter.Money(c.RetentionAmount),
					formatter.Dim(c.Currency),
				})
			}
			fmt.Print(formatter.RenderTable([]string{"CODE", "VENDOR", "STATUS", "COMMITTED", "INVOICED", "PAID", "RETAINED", "CCY"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newCommitmentApproveCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a draft commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Commitments.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Commitments.Approve(context.Background(), c.ID); err != nil {
				return err
			}
			fmt.Printf("Approved commitment %s\n", c.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newCommitmentActivateCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate an approved commitment and post committed cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Commitments.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Commitments.Activate(context.Background(), c.ID); err != nil {
				return err
			}
			fmt.Printf("Activated commitment %s\n", c.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newCommitmentReviseCmd(app *App) *cobra.Command {
	var projectID, code, amountStr, reason, approver string

	cmd := &cobra.Command{
		Use:   "revise",
		Short: "Revise a commitment's amount, appending to its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			c, err := app.Commitments.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Commitments.Revise(context.Background(), c.ID, amount, reason, approver); err != nil {
				return err
			}
			fmt.Printf("Revised commitment %s to %s\n", c.Code, formatter.Money(amount))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "New revised amount (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Revision reason")
	cmd.Flags().StringVar(&approver, "by", "", "Approver")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newCommitmentAllocateCmd(app *App) *cobra.Command {
	var projectID, code, workPackageID, amountStr string

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate part of a commitment to a work package",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			c, err := app.Commitments.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Commitments.AllocateToWorkPackage(context.Background(), c.ID, workPackageID, amount); err != nil {
				return err
			}
			fmt.Printf("Allocated %s to work package %s on %s\n", formatter.Money(amount), workPackageID, c.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	cmd.Flags().StringVar(&workPackageID, "work-package", "", "Work package ID (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Allocation amount (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("work-package")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newCommitmentCloseCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a fully paid commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Commitments.GetByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Commitments.Close(context.Background(), c.ID); err != nil {
				return err
			}
			fmt.Printf("Closed commitment %s\n", c.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Commitment code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
