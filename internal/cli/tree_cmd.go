package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newTreeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Manage the cost breakdown structure",
	}

	cmd.AddCommand(
		newTreeAddCmd(app),
		newTreeShowCmd(app),
		newTreeInspectCmd(app),
		newTreeChangeCmd(app),
		newTreeRecomputeCmd(app),
		newTreeRemoveCmd(app),
	)

	return cmd
}

func newTreeAddCmd(app *App) *cobra.Command {
	var projectID, code, description, parentCode, currency, budget string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new cost node",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(budget)
			if err != nil {
				return fmt.Errorf("parsing budget %q: %w", budget, err)
			}

			n := &domain.CostNode{
				ProjectID:      projectID,
				Code:           code,
				Description:    description,
				Currency:       currency,
				OriginalBudget: amount,
			}
			if parentCode != "" {
				parent, err := app.Tree.GetNodeByCode(context.Background(), projectID, parentCode)
				if err != nil {
					return err
				}
				n.ParentID = &parent.ID
			}

			if err := app.Tree.AddNode(context.Background(), n); err != nil {
				return err
			}
			fmt.Printf("Created cost node %s (%s)\n", n.Code, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Hierarchical code, e.g. 01.02 (required)")
	cmd.Flags().StringVar(&description, "description", "", "Node description")
	cmd.Flags().StringVar(&parentCode, "parent", "", "Parent node code")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Node currency")
	cmd.Flags().StringVar(&budget, "budget", "0", "Original budget")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newTreeShowCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the project's cost tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := app.Tree.ListByProject(context.Background(), projectID)
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Println(formatter.Dim("No cost nodes."))
				return nil
			}
			fmt.Print(formatter.RenderCostTree(nodes))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTreeInspectCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect one cost node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Tree.GetNodeByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			fmt.Println(formatter.RenderNodeDetail(n))

			changes, err := app.Tree.ListBudgetChanges(context.Background(), n.ID)
			if err != nil {
				return err
			}
			if len(changes) > 0 {
				rows := make([][]string, 0, len(changes))
				for _, c := range changes {
					rows = append(rows, []string{
						c.CreatedAt.Format("2006-01-02"),
						formatter.MoneyStyled(c.Amount),
						c.Reason,
						c.CreatedBy,
					})
				}
				fmt.Println(formatter.RenderTable([]string{"DATE", "AMOUNT", "REASON", "BY"}, rows))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Node code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newTreeChangeCmd(app *App) *cobra.Command {
	var projectID, code, amountStr, reason, actor string

	cmd := &cobra.Command{
		Use:   "change",
		Short: "Apply an approved budget change to a leaf node",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			n, err := app.Tree.GetNodeByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Tree.ApplyApprovedChange(context.Background(), n.ID, amount, reason, actor); err != nil {
				return err
			}
			fmt.Printf("Applied change %s to %s\n", formatter.Money(amount), n.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Leaf node code (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Change amount, may be negative (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Change reason")
	cmd.Flags().StringVar(&actor, "by", "", "Approver")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTreeRecomputeCmd(app *App) *cobra.Command {
	var projectID, code, asOfStr string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute roll-ups for a subtree",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDateFlag(asOfStr)
			if err != nil {
				return err
			}
			n, err := app.Tree.GetNodeByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}

			stop := formatter.StartSpinner("Recomputing roll-ups...")
			err = app.Tree.RecomputeRollups(context.Background(), n.ID, asOf)
			stop()
			if err != nil {
				return err
			}
			fmt.Printf("Recomputed roll-ups under %s\n", n.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Subtree root code (required)")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "Conversion date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newTreeRemoveCmd(app *App) *cobra.Command {
	var projectID, code string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Soft-delete a cost node without postings",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Tree.GetNodeByCode(context.Background(), projectID, code)
			if err != nil {
				return err
			}
			if err := app.Tree.SoftDeleteNode(context.Background(), n.ID); err != nil {
				return err
			}
			fmt.Printf("Removed cost node %s\n", n.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&code, "code", "", "Node code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

// parseDateFlag parses a YYYY-MM-DD flag value, defaulting to today.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
