package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var costCodePattern = regexp.MustCompile(`^[0-9]{2}(\.[0-9]{2})*$`)

// CostNode is one element of the cost breakdown structure. Non-leaf nodes
// carry derived figures only: budget, committed, actual and forecast are the
// sums of their direct children and are maintained by roll-up recomputation,
// never edited directly.
type CostNode struct {
	ID              string
	ProjectID       string
	Code            string // hierarchical, e.g. "01.02.03"
	Description     string
	ParentID        *string
	Level           int
	IsLeaf          bool
	Currency        string
	OriginalBudget  decimal.Decimal
	ApprovedChanges decimal.Decimal
	CommittedCost   decimal.Decimal
	ActualCost      decimal.Decimal
	ForecastCost    decimal.Decimal
	RowVersion      int64
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CurrentBudget is the control figure: original budget plus approved changes.
func (n *CostNode) CurrentBudget() decimal.Decimal {
	return n.OriginalBudget.Add(n.ApprovedChanges)
}

// ValidateCode checks the hierarchical code format: two-digit segments
// separated by dots (e.g. 01, 01.02, 01.02.03).
func (n *CostNode) ValidateCode() error {
	if n.Code == "" {
		return fmt.Errorf("cost node code is required: %w", ErrValidation)
	}
	if !costCodePattern.MatchString(n.Code) {
		return fmt.Errorf("cost node code %q must be dot-separated two-digit segments: %w", n.Code, ErrValidation)
	}
	return nil
}

// HasPostings reports whether the node carries committed or actual cost.
// Nodes with postings are soft-deleted, never removed.
func (n *CostNode) HasPostings() bool {
	return !n.CommittedCost.IsZero() || !n.ActualCost.IsZero()
}

// BudgetChange is an append-only record of an approved budget change applied
// to a leaf cost node.
type BudgetChange struct {
	ID         string
	CostNodeID string
	Amount     decimal.Decimal
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
}
