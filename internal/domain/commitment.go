package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Commitment is a purchase order or contract posted against the cost
// structure. Amount history is additive: revisions append, they never
// overwrite.
type Commitment struct {
	ID                  string
	ProjectID           string
	ControlAccountID    string
	Code                string
	VendorName          string
	Description         string
	Status              CommitmentStatus
	Currency            string
	OriginalAmount      decimal.Decimal
	RevisedAmount       decimal.Decimal
	CommittedAmount     decimal.Decimal
	InvoicedAmount      decimal.Decimal
	PaidAmount          decimal.Decimal
	RetentionPercentage decimal.Decimal
	RetentionAmount     decimal.Decimal
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Approve moves a draft commitment to approved.
func (c *Commitment) Approve() error {
	if c.Status != CommitmentDraft {
		return fmt.Errorf("commitment %s is %s, only drafts can be approved: %w", c.Code, c.Status, ErrConflict)
	}
	c.Status = CommitmentApproved
	return nil
}

// Activate moves an approved commitment to active, opening it for invoicing.
func (c *Commitment) Activate() error {
	if c.Status != CommitmentApproved {
		return fmt.Errorf("commitment %s is %s, only approved commitments can be activated: %w", c.Code, c.Status, ErrConflict)
	}
	c.Status = CommitmentActive
	return nil
}

// Close terminates an active commitment. Requires the invoiced amount to be
// fully paid.
func (c *Commitment) Close() error {
	if c.Status != CommitmentActive {
		return fmt.Errorf("commitment %s is %s, only active commitments can be closed: %w", c.Code, c.Status, ErrConflict)
	}
	if c.PaidAmount.LessThan(c.InvoicedAmount) {
		return fmt.Errorf("commitment %s has unpaid invoiced amount: %w", c.Code, ErrConflict)
	}
	c.Status = CommitmentClosed
	return nil
}

// ApplyInvoiceAmount adds an invoice total to the commitment, enforcing the
// invoiced ≤ committed ceiling and the retention invariant.
func (c *Commitment) ApplyInvoiceAmount(total decimal.Decimal) error {
	if c.Status != CommitmentActive {
		return fmt.Errorf("commitment %s is %s, invoices require an active commitment: %w", c.Code, c.Status, ErrConflict)
	}
	next := c.InvoicedAmount.Add(total)
	if next.GreaterThan(c.CommittedAmount) {
		return fmt.Errorf("invoicing %s against commitment %s would exceed committed %s: %w",
			total, c.Code, c.CommittedAmount, ErrOverInvoiced)
	}
	c.InvoicedAmount = next
	c.RetentionAmount = c.RetentionPercentage.Mul(c.InvoicedAmount).Div(decimal.NewFromInt(100)).Round(2)
	return nil
}

// ApplyPayment adds a payment, enforcing paid ≤ invoiced.
func (c *Commitment) ApplyPayment(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("payment amount must be positive: %w", ErrValidation)
	}
	next := c.PaidAmount.Add(amount)
	if next.GreaterThan(c.InvoicedAmount) {
		return fmt.Errorf("paying %s against commitment %s would exceed invoiced %s: %w",
			amount, c.Code, c.InvoicedAmount, ErrOverpayment)
	}
	c.PaidAmount = next
	return nil
}

// CommitmentItem is one line of a commitment: quantity times unit price,
// less discount, plus tax.
type CommitmentItem struct {
	ID           string
	CommitmentID string
	BudgetItemID string // leaf cost node the line is charged to
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DiscountPct  decimal.Decimal
	TaxPct       decimal.Decimal
	CreatedAt    time.Time
}

// NetAmount is quantity × unit price, discounted then taxed, rounded to 2.
func (i *CommitmentItem) NetAmount() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	gross := i.Quantity.Mul(i.UnitPrice)
	discounted := gross.Sub(gross.Mul(i.DiscountPct).Div(hundred))
	return discounted.Add(discounted.Mul(i.TaxPct).Div(hundred)).Round(2)
}

// CommitmentRevision captures one amount change. Append-only.
type CommitmentRevision struct {
	ID             string
	CommitmentID   string
	RevisionNumber int
	PreviousAmount decimal.Decimal
	RevisedAmount  decimal.Decimal
	Reason         string
	ApprovedBy     string
	CreatedAt      time.Time
}

// CommitmentWorkPackage allocates part of a commitment to a work package.
type CommitmentWorkPackage struct {
	ID                 string
	CommitmentID       string
	WorkPackageID      string
	AllocatedAmount    decimal.Decimal
	InvoicedAmount     decimal.Decimal
	ProgressPercentage decimal.Decimal
	CreatedAt          time.Time
}

// ApplyInvoiceAmount adds invoiced cost to the allocation, enforcing
// invoiced ≤ allocated. Progress tracks the invoiced share of the allocation.
func (w *CommitmentWorkPackage) ApplyInvoiceAmount(amount decimal.Decimal) error {
	next := w.InvoicedAmount.Add(amount)
	if next.GreaterThan(w.AllocatedAmount) {
		return fmt.Errorf("invoicing %s against work package %s would exceed allocation %s: %w",
			amount, w.WorkPackageID, w.AllocatedAmount, ErrOverInvoiced)
	}
	w.InvoicedAmount = next
	w.ProgressPercentage = SafeIndex(w.InvoicedAmount, w.AllocatedAmount).Mul(decimal.NewFromInt(100)).Round(2)
	return nil
}
