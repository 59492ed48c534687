package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newInvoiceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Record and process invoices and actual costs",
	}

	cmd.AddCommand(
		newInvoiceRecordCmd(app),
		newInvoiceListCmd(app),
		newInvoiceReviewCmd(app),
		newInvoiceApproveCmd(app),
		newInvoiceRejectCmd(app),
		newInvoicePayCmd(app),
		newInvoiceDirectCmd(app),
	)

	return cmd
}

// resolveInvoice finds an invoice by commitment code and invoice number.
func resolveInvoice(app *App, projectID, commitmentCode, number string) (*domain.Invoice, error) {
	c, err := app.Commitments.GetByCode(context.Background(), projectID, commitmentCode)
	if err != nil {
		return nil, err
	}
	invoices, err := app.Actuals.ListInvoices(context.Background(), c.ID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("invoice %s on commitment %s: %w", number, commitmentCode, domain.ErrNotFound)
}

func newInvoiceRecordCmd(app *App) *cobra.Command {
	var projectID, commitmentCode, number, createdBy string
	var grossStr, taxStr, discountStr, periodStartStr, periodEndStr string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an invoice against an active commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			gross, err := decimal.NewFromString(grossStr)
			if err != nil {
				return fmt.Errorf("parsing gross %q: %w", grossStr, err)
			}
			tax, err := decimal.NewFromString(taxStr)
			if err != nil {
				return fmt.Errorf("parsing tax %q: %w", taxStr, err)
			}
			discount, err := decimal.NewFromString(discountStr)
			if err != nil {
				return fmt.Errorf("parsing discount %q: %w", discountStr, err)
			}
			periodStart, err := parseDateFlag(periodStartStr)
			if err != nil {
				return err
			}
			periodEnd, err := parseDateFlag(periodEndStr)
			if err != nil {
				return err
			}
			c, err := app.Commitments.GetByCode(context.Background(), projectID, commitmentCode)
			if err != nil {
				return err
			}

			inv := &domain.Invoice{
				Number:         number,
				PeriodStart:    periodStart,
				PeriodEnd:      periodEnd,
				GrossAmount:    gross,
				TaxAmount:      tax,
				DiscountAmount: discount,
				CreatedBy:      createdBy,
			}
			if err := app.Actuals.RecordInvoice(context.Background(), c.ID, inv, nil); err != nil {
				return err
			}
			fmt.Printf("Recorded invoice %s: net %s, retained %s, payable %s\n",
				inv.Number, formatter.Money(inv.NetAmount), formatter.Money(inv.RetentionAmount), formatter.Money(inv.TotalAmount))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	cmd.Flags().StringVar(&number, "number", "", "Invoice number (required)")
	cmd.Flags().StringVar(&grossStr, "gross", "", "Gross amount (required)")
	cmd.Flags().StringVar(&taxStr, "tax", "0", "Tax amount")
	cmd.Flags().StringVar(&discountStr, "discount", "0", "Discount amount")
	cmd.Flags().StringVar(&periodStartStr, "start", "", "Billing period start YYYY-MM-DD")
	cmd.Flags().StringVar(&periodEndStr, "end", "", "Billing period end YYYY-MM-DD")
	cmd.Flags().StringVar(&createdBy, "by", "", "Recorder")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("gross")

	return cmd
}

func newInvoiceListCmd(app *App) *cobra.Command {
	var projectID, commitmentCode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a commitment's invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Commitments.GetByCode(context.Background(), projectID, commitmentCode)
			if err != nil {
				return err
			}
			invoices, err := app.Actuals.ListInvoices(context.Background(), c.ID)
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Println(formatter.Dim("No invoices."))
				return nil
			}
			rows := make([][]string, 0, len(invoices))
			for _, inv := range invoices {
				rows = append(rows, []string{
					inv.Number,
					formatter.InvoiceStatusPill(inv.Status),
					formatter.Money(inv.NetAmount),
					formatter.Money(inv.RetentionAmount),
					formatter.Money(inv.TotalAmount),
					formatter.Money(inv.PaidAmount),
					formatter.Dim(inv.Currency),
				})
			}
			fmt.Print(formatter.RenderTable([]string{"NUMBER", "STATUS", "NET", "RETAINED", "PAYABLE", "PAID", "CCY"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")

	return cmd
}

func newInvoiceReviewCmd(app *App) *cobra.Command {
	var projectID, commitmentCode, number, actor string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Mark a submitted invoice as reviewed",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := resolveInvoice(app, projectID, commitmentCode, number)
			if err != nil {
				return err
			}
			if err := app.Actuals.ReviewInvoice(context.Background(), inv.ID, actor); err != nil {
				return err
			}
			fmt.Printf("Reviewed invoice %s\n", inv.Number)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	cmd.Flags().StringVar(&number, "number", "", "Invoice number (required)")
	cmd.Flags().StringVar(&actor, "by", "", "Reviewer")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newInvoiceApproveCmd(app *App) *cobra.Command {
	var projectID, commitmentCode, number, actor string

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a reviewed invoice, posting actual cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := resolveInvoice(app, projectID, commitmentCode, number)
			if err != nil {
				return err
			}
			if err := app.Actuals.ApproveInvoice(context.Background(), inv.ID, actor); err != nil {
				return err
			}
			fmt.Printf("Approved invoice %s\n", inv.Number)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	cmd.Flags().StringVar(&number, "number", "", "Invoice number (required)")
	cmd.Flags().StringVar(&actor, "by", "", "Approver")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newInvoiceRejectCmd(app *App) *cobra.Command {
	var projectID, commitmentCode, number, actor string

	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject an invoice, releasing its invoiced amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := resolveInvoice(app, projectID, commitmentCode, number)
			if err != nil {
				return err
			}
			if err := app.Actuals.RejectInvoice(context.Background(), inv.ID, actor); err != nil {
				return err
			}
			fmt.Printf("Rejected invoice %s\n", inv.Number)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	cmd.Flags().StringVar(&number, "number", "", "Invoice number (required)")
	cmd.Flags().StringVar(&actor, "by", "", "Rejecter")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newInvoicePayCmd(app *App) *cobra.Command {
	var projectID, commitmentCode, number, amountStr string

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record a payment against an approved invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			inv, err := resolveInvoice(app, projectID, commitmentCode, number)
			if err != nil {
				return err
			}
			if err := app.Actuals.RecordPayment(context.Background(), inv.ID, amount); err != nil {
				return err
			}
			fmt.Printf("Paid %s against invoice %s\n", formatter.Money(amount), inv.Number)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&commitmentCode, "commitment", "", "Commitment code (required)")
	cmd.Flags().StringVar(&number, "number", "", "Invoice number (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Payment amount (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("commitment")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newInvoiceDirectCmd(app *App) *cobra.Command {
	var projectID, nodeCode, amountStr, currency, description, postedStr, createdBy string

	cmd := &cobra.Command{
		Use:   "direct",
		Short: "Post a direct actual cost against a leaf cost node",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			postedAt, err := parseDateFlag(postedStr)
			if err != nil {
				return err
			}
			node, err := app.Tree.GetNodeByCode(context.Background(), projectID, nodeCode)
			if err != nil {
				return err
			}

			p := &domain.ActualPosting{
				CostNodeID:  node.ID,
				Amount:      amount,
				Currency:    currency,
				Description: description,
				PostedAt:    postedAt,
				CreatedBy:   createdBy,
			}
			if err := app.Actuals.RecordDirectCost(context.Background(), p); err != nil {
				return err
			}
			fmt.Printf("Posted %s against %s\n", formatter.Money(amount), node.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&nodeCode, "node", "", "Leaf cost node code (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Posting amount (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "Posting currency (default node currency)")
	cmd.Flags().StringVar(&description, "description", "", "Posting description")
	cmd.Flags().StringVar(&postedStr, "date", "", "Posting date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&createdBy, "by", "", "Poster")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
