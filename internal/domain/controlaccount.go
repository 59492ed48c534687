package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ControlAccount is the unit at which earned value is measured. Each account
// owns one CostNode subtree and carries its own budget at completion plus
// reserves.
type ControlAccount struct {
	ID                 string
	ProjectID          string
	CostNodeID         string
	Code               string
	Description        string
	BAC                decimal.Decimal // excludes reserves
	ContingencyReserve decimal.Decimal
	ManagementReserve  decimal.Decimal
	MeasurementMethod  MeasurementMethod
	Status             AccountStatus
	PercentComplete    decimal.Decimal // recorded physical progress [0,100]
	BaselineDate       *time.Time
	CAMUserID          string
	Currency           string
	RowVersion         int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TotalBudget is BAC plus contingency and management reserves.
func (a *ControlAccount) TotalBudget() decimal.Decimal {
	return a.BAC.Add(a.ContingencyReserve).Add(a.ManagementReserve)
}

// ValidateProgress checks that a physical progress value is within [0,100].
func ValidateProgress(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("percent complete %s outside [0,100]: %w", pct, ErrValidation)
	}
	return nil
}

// WorkPackageAllocation assigns part of a control account's BAC to a work
// package. The sum of allocations on an account never exceeds its BAC.
type WorkPackageAllocation struct {
	ID               string
	ControlAccountID string
	WorkPackageID    string
	AllocatedAmount  decimal.Decimal
	InvoicedAmount   decimal.Decimal
	ProgressPct      decimal.Decimal
	CreatedAt        time.Time
}

// ApplyInvoiceAmount adds invoiced cost to the allocation, enforcing
// invoiced ≤ allocated. Progress tracks the invoiced share of the allocation.
func (w *WorkPackageAllocation) ApplyInvoiceAmount(amount decimal.Decimal) error {
	next := w.InvoicedAmount.Add(amount)
	if next.GreaterThan(w.AllocatedAmount) {
		return fmt.Errorf("invoicing %s against work package %s would exceed allocation %s: %w",
			amount, w.WorkPackageID, w.AllocatedAmount, ErrOverInvoiced)
	}
	w.InvoicedAmount = next
	w.ProgressPct = SafeIndex(w.InvoicedAmount, w.AllocatedAmount).Mul(decimal.NewFromInt(100)).Round(2)
	return nil
}

// WBSCBSMapping cross-links a WBS work package to a CBS cost node with a
// percentage share. Per work package the shares sum to at most 100.
type WBSCBSMapping struct {
	ID            string
	WorkPackageID string
	CostNodeID    string
	Percent       decimal.Decimal
	CreatedAt     time.Time
}
