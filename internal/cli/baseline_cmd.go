package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newBaselineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage budget revisions and the baseline",
	}

	cmd.AddCommand(
		newBaselineNewCmd(app),
		newBaselinePeriodCmd(app),
		newBaselineListCmd(app),
		newBaselineSubmitCmd(app),
		newBaselineApproveCmd(app),
		newBaselineRejectCmd(app),
		newBaselineSetCmd(app),
		newBaselineArchiveCmd(app),
	)

	return cmd
}

// resolveRevision finds a revision by account code and revision number.
func resolveRevision(app *App, projectID, accountCode string, number int) (*domain.BudgetRevision, error) {
	a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
	if err != nil {
		return nil, err
	}
	revisions, err := app.Baselines.ListRevisions(context.Background(), a.ID)
	if err != nil {
		return nil, err
	}
	for _, rev := range revisions {
		if rev.RevisionNumber == number {
			return rev, nil
		}
	}
	return nil, fmt.Errorf("revision %d on account %s: %w", number, accountCode, domain.ErrNotFound)
}

func newBaselineNewCmd(app *App) *cobra.Command {
	var projectID, accountCode string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Open a new draft budget revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}
			rev, err := app.Baselines.CreateRevision(context.Background(), a.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Opened revision %d on %s\n", rev.RevisionNumber, a.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newBaselinePeriodCmd(app *App) *cobra.Command {
	var projectID, accountCode string
	var number int
	var startStr, endStr, pvStr, cumStr string

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Add a time-phased period row to a draft revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}
			start, err := parseDateFlag(startStr)
			if err != nil {
				return err
			}
			end, err := parseDateFlag(endStr)
			if err != nil {
				return err
			}
			pv, err := decimal.NewFromString(pvStr)
			if err != nil {
				return fmt.Errorf("parsing planned value %q: %w", pvStr, err)
			}
			cum, err := decimal.NewFromString(cumStr)
			if err != nil {
				return fmt.Errorf("parsing cumulative %q: %w", cumStr, err)
			}

			row := &domain.TimePhasedBudget{
				PeriodStart:            start,
				PeriodEnd:              end,
				PlannedValue:           pv,
				CumulativePlannedValue: cum,
			}
			if err := app.Baselines.AddPeriods(context.Background(), rev.ID, []*domain.TimePhasedBudget{row}); err != nil {
				return err
			}
			fmt.Printf("Added period %s to revision %d\n", start.Format("2006-01-02"), rev.RevisionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	cmd.Flags().StringVar(&startStr, "start", "", "Period start YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endStr, "end", "", "Period end YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&pvStr, "pv", "0", "Planned value for the period")
	cmd.Flags().StringVar(&cumStr, "cumulative", "0", "Cumulative planned value at period start")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newBaselineListCmd(app *App) *cobra.Command {
	var projectID, accountCode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's budget revisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Accounts.GetByCode(context.Background(), projectID, accountCode)
			if err != nil {
				return err
			}
			revisions, err := app.Baselines.ListRevisions(context.Background(), a.ID)
			if err != nil {
				return err
			}
			if len(revisions) == 0 {
				fmt.Println(formatter.Dim("No revisions."))
				return nil
			}
			rows := make([][]string, 0, len(revisions))
			for _, rev := range revisions {
				baselined := ""
				if rev.BaselinedAt != nil {
					baselined = rev.BaselinedAt.Format("2006-01-02")
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", rev.RevisionNumber),
					formatter.RevisionStatusPill(rev.Status),
					rev.SubmittedBy,
					rev.ApprovedBy,
					baselined,
					rev.Comments,
				})
			}
			fmt.Print(formatter.RenderTable([]string{"REV", "STATUS", "SUBMITTED BY", "APPROVED BY", "BASELINED", "COMMENTS"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newBaselineSubmitCmd(app *App) *cobra.Command {
	var projectID, accountCode, actor string
	var number int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a draft revision for approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}
			if err := app.Baselines.Submit(context.Background(), rev.ID, actor); err != nil {
				return err
			}
			fmt.Printf("Submitted revision %d\n", rev.RevisionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	cmd.Flags().StringVar(&actor, "by", "", "Submitter")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func newBaselineApproveCmd(app *App) *cobra.Command {
	var projectID, accountCode, actor, comments string
	var number int

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a submitted revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}
			if err := app.Baselines.Approve(context.Background(), rev.ID, actor, comments); err != nil {
				return err
			}
			fmt.Printf("Approved revision %d\n", rev.RevisionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	cmd.Flags().StringVar(&actor, "by", "", "Approver")
	cmd.Flags().StringVar(&comments, "comments", "", "Approval comments")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func newBaselineRejectCmd(app *App) *cobra.Command {
	var projectID, accountCode, comments string
	var number int

	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject a revision back to draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}
			if err := app.Baselines.Reject(context.Background(), rev.ID, comments); err != nil {
				return err
			}
			fmt.Printf("Rejected revision %d\n", rev.RevisionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	cmd.Flags().StringVar(&comments, "comments", "", "Rejection comments")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func newBaselineSetCmd(app *App) *cobra.Command {
	var projectID, accountCode string
	var number int
	var yes bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set an approved revision as the account baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}

			// Switching baselines archives the previous one; confirm on a
			// terminal unless --yes was passed.
			if !yes && app.IsInteractive != nil && app.IsInteractive() {
				confirmed := false
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("Baseline revision %d on %s? The current baseline will be archived.", rev.RevisionNumber, accountCode)).
							Affirmative("Yes").
							Negative("No").
							Value(&confirmed),
					),
				).WithShowHelp(false)
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(formatter.Dim("Aborted."))
					return nil
				}
			}

			if err := app.Baselines.SetAsBaseline(context.Background(), rev.ID); err != nil {
				return err
			}
			fmt.Printf("Revision %d is now the baseline on %s\n", rev.RevisionNumber, accountCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func newBaselineArchiveCmd(app *App) *cobra.Command {
	var projectID, accountCode string
	var number int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive an approved or baselined revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := resolveRevision(app, projectID, accountCode, number)
			if err != nil {
				return err
			}
			if err := app.Baselines.Archive(context.Background(), rev.ID); err != nil {
				return err
			}
			fmt.Printf("Archived revision %d\n", rev.RevisionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&accountCode, "account", "", "Account code (required)")
	cmd.Flags().IntVar(&number, "revision", 0, "Revision number (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}
