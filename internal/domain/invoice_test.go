package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInvoiceComputeAmounts(t *testing.T) {
	inv := &Invoice{Number: "INV-1", GrossAmount: d("10000"), TaxAmount: d("1000"), DiscountAmount: d("500")}

	require.NoError(t, inv.ComputeAmounts(d("10")))

	assert.True(t, inv.NetAmount.Equal(d("8500")), "net: %s", inv.NetAmount)
	assert.True(t, inv.RetentionAmount.Equal(d("850")), "retention: %s", inv.RetentionAmount)
	assert.True(t, inv.TotalAmount.Equal(d("7650")), "total: %s", inv.TotalAmount)
}

func TestInvoiceComputeAmounts_RetentionRoundsToCents(t *testing.T) {
	inv := &Invoice{Number: "INV-2", GrossAmount: d("100.33")}

	require.NoError(t, inv.ComputeAmounts(d("5")))

	// 5% of 100.33 is 5.0165, rounded half-up to 5.02.
	assert.True(t, inv.RetentionAmount.Equal(d("5.02")), "retention: %s", inv.RetentionAmount)
	assert.True(t, inv.TotalAmount.Equal(d("95.31")), "total: %s", inv.TotalAmount)
}

func TestInvoiceComputeAmounts_Rejects(t *testing.T) {
	cases := []struct {
		name string
		inv  Invoice
	}{
		{"zero gross", Invoice{Number: "I", GrossAmount: decimal.Zero}},
		{"negative tax", Invoice{Number: "I", GrossAmount: d("100"), TaxAmount: d("-1")}},
		{"negative discount", Invoice{Number: "I", GrossAmount: d("100"), DiscountAmount: d("-1")}},
		{"net not positive", Invoice{Number: "I", GrossAmount: d("100"), TaxAmount: d("60"), DiscountAmount: d("40")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.inv.ComputeAmounts(decimal.Zero)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestInvoiceStateMachine(t *testing.T) {
	inv := &Invoice{Number: "INV-3", Status: InvoiceSubmitted}

	require.NoError(t, inv.Review("alice"))
	assert.Equal(t, InvoiceReviewed, inv.Status)
	assert.Equal(t, "alice", inv.ReviewedBy)

	require.NoError(t, inv.Approve("bob"))
	assert.Equal(t, InvoiceApproved, inv.Status)
	assert.Equal(t, "bob", inv.ApprovedBy)

	// Approved invoices can no longer be rejected.
	assert.ErrorIs(t, inv.Reject("carol"), ErrConflict)
}

func TestInvoiceApprove_RequiresReview(t *testing.T) {
	inv := &Invoice{Number: "INV-4", Status: InvoiceSubmitted}
	assert.ErrorIs(t, inv.Approve("bob"), ErrConflict)
}

func TestInvoiceApplyPayment(t *testing.T) {
	inv := &Invoice{Number: "INV-5", Status: InvoiceApproved, TotalAmount: d("1000")}

	require.NoError(t, inv.ApplyPayment(d("400")))
	assert.Equal(t, InvoiceApproved, inv.Status)

	// Overpayment is refused and leaves the paid amount unchanged.
	assert.ErrorIs(t, inv.ApplyPayment(d("700")), ErrOverpayment)
	assert.True(t, inv.PaidAmount.Equal(d("400")))

	require.NoError(t, inv.ApplyPayment(d("600")))
	assert.Equal(t, InvoicePaid, inv.Status)
}
