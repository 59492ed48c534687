package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetRevision is one versioned schedule of budget for a control account.
// It carries the baseline state machine:
//
//	draft → submitted → approved → baselined → archived
//
// with approved → draft on rejection. At most one revision per control
// account is baselined at a time.
type BudgetRevision struct {
	ID               string
	ControlAccountID string
	RevisionNumber   int
	Status           RevisionStatus
	Comments         string
	SubmittedBy      string
	ApprovedBy       string
	BaselinedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Submit moves a draft revision to submitted.
func (r *BudgetRevision) Submit(actor string) error {
	if r.Status != RevisionDraft {
		return fmt.Errorf("revision %d is %s, only draft revisions can be submitted: %w",
			r.RevisionNumber, r.Status, ErrConflict)
	}
	r.Status = RevisionSubmitted
	r.SubmittedBy = actor
	return nil
}

// Approve moves a submitted revision to approved.
func (r *BudgetRevision) Approve(actor, comments string) error {
	if r.Status != RevisionSubmitted {
		return fmt.Errorf("revision %d is %s, only submitted revisions can be approved: %w",
			r.RevisionNumber, r.Status, ErrConflict)
	}
	r.Status = RevisionApproved
	r.ApprovedBy = actor
	r.Comments = comments
	return nil
}

// Reject returns a submitted or approved revision to draft.
func (r *BudgetRevision) Reject(comments string) error {
	if r.Status != RevisionSubmitted && r.Status != RevisionApproved {
		return fmt.Errorf("revision %d is %s and cannot be rejected: %w",
			r.RevisionNumber, r.Status, ErrConflict)
	}
	r.Status = RevisionDraft
	r.ApprovedBy = ""
	r.Comments = comments
	return nil
}

// TimePhasedBudget is one period row of a budget revision: the planned value
// for the period, the running cumulative, and the resource-cost breakdown.
// Rows of a baselined revision are immutable.
type TimePhasedBudget struct {
	ID                     string
	ControlAccountID       string
	RevisionID             string
	PeriodStart            time.Time
	PeriodEnd              time.Time
	PlannedValue           decimal.Decimal
	CumulativePlannedValue decimal.Decimal
	LaborCost              decimal.Decimal
	MaterialCost           decimal.Decimal
	EquipmentCost          decimal.Decimal
	SubcontractCost        decimal.Decimal
	OtherCost              decimal.Decimal
	IsBaseline             bool
	CreatedAt              time.Time
}

// ValidatePeriods checks that rows (assumed sorted by period start) are
// contiguous and non-overlapping and that the cumulative planned value is
// monotonically non-decreasing.
func ValidatePeriods(rows []*TimePhasedBudget) error {
	for i, row := range rows {
		if !row.PeriodEnd.After(row.PeriodStart) {
			return fmt.Errorf("period %d ends before it starts: %w", i, ErrValidation)
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if !row.PeriodStart.Equal(prev.PeriodEnd) {
			return fmt.Errorf("period starting %s is not contiguous with previous period ending %s: %w",
				row.PeriodStart.Format("2006-01-02"), prev.PeriodEnd.Format("2006-01-02"), ErrValidation)
		}
		if row.CumulativePlannedValue.LessThan(prev.CumulativePlannedValue) {
			return fmt.Errorf("cumulative planned value decreases at period starting %s: %w",
				row.PeriodStart.Format("2006-01-02"), ErrValidation)
		}
	}
	return nil
}
