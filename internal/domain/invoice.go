package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is actual-cost evidence posted against a commitment.
// Amount invariants:
//
//	net   = gross − tax − discount
//	total = net − retention
type Invoice struct {
	ID              string
	CommitmentID    string
	Number          string
	Status          InvoiceStatus
	Currency        string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	GrossAmount     decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	NetAmount       decimal.Decimal
	RetentionAmount decimal.Decimal
	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	CreatedBy       string
	ReviewedBy      string
	ApprovedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ComputeAmounts derives net, retention and total from gross, tax, discount
// and the commitment's retention percentage. Retention rounds to 2 places.
func (v *Invoice) ComputeAmounts(retentionPct decimal.Decimal) error {
	if v.GrossAmount.Sign() <= 0 {
		return fmt.Errorf("invoice %s gross amount must be positive: %w", v.Number, ErrValidation)
	}
	if v.TaxAmount.IsNegative() || v.DiscountAmount.IsNegative() {
		return fmt.Errorf("invoice %s tax and discount must be non-negative: %w", v.Number, ErrValidation)
	}
	v.NetAmount = v.GrossAmount.Sub(v.TaxAmount).Sub(v.DiscountAmount)
	if v.NetAmount.Sign() <= 0 {
		return fmt.Errorf("invoice %s net amount must be positive: %w", v.Number, ErrValidation)
	}
	v.RetentionAmount = retentionPct.Mul(v.NetAmount).Div(decimal.NewFromInt(100)).Round(2)
	v.TotalAmount = v.NetAmount.Sub(v.RetentionAmount)
	return nil
}

// Review moves a submitted invoice to reviewed.
func (v *Invoice) Review(actor string) error {
	if v.Status != InvoiceSubmitted {
		return fmt.Errorf("invoice %s is %s, only submitted invoices can be reviewed: %w", v.Number, v.Status, ErrConflict)
	}
	v.Status = InvoiceReviewed
	v.ReviewedBy = actor
	return nil
}

// Approve moves a reviewed invoice to approved.
func (v *Invoice) Approve(actor string) error {
	if v.Status != InvoiceReviewed {
		return fmt.Errorf("invoice %s is %s, only reviewed invoices can be approved: %w", v.Number, v.Status, ErrConflict)
	}
	v.Status = InvoiceApproved
	v.ApprovedBy = actor
	return nil
}

// Reject terminates a submitted or reviewed invoice.
func (v *Invoice) Reject(actor string) error {
	if v.Status != InvoiceSubmitted && v.Status != InvoiceReviewed {
		return fmt.Errorf("invoice %s is %s and cannot be rejected: %w", v.Number, v.Status, ErrConflict)
	}
	v.Status = InvoiceRejected
	v.ReviewedBy = actor
	return nil
}

// ApplyPayment records a payment against an approved invoice. Fully paid
// invoices move to paid.
func (v *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if v.Status != InvoiceApproved {
		return fmt.Errorf("invoice %s is %s, payments require an approved invoice: %w", v.Number, v.Status, ErrConflict)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("payment amount must be positive: %w", ErrValidation)
	}
	next := v.PaidAmount.Add(amount)
	if next.GreaterThan(v.TotalAmount) {
		return fmt.Errorf("paying %s against invoice %s would exceed total %s: %w",
			amount, v.Number, v.TotalAmount, ErrOverpayment)
	}
	v.PaidAmount = next
	if v.PaidAmount.Equal(v.TotalAmount) {
		v.Status = InvoicePaid
	}
	return nil
}

// InvoiceItem is one line of an invoice, referencing the commitment line and
// budget item it charges.
type InvoiceItem struct {
	ID               string
	InvoiceID        string
	CommitmentItemID string
	BudgetItemID     string
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	CreatedAt        time.Time
}

// ActualPosting is a direct actual-cost entry recorded against a leaf cost
// node outside the invoice workflow. Append-only.
type ActualPosting struct {
	ID          string
	CostNodeID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
	PostedAt    time.Time
	CreatedBy   string
	CreatedAt   time.Time
}
