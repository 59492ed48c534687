package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

func TestActualCostService_OverInvoicingLeavesLedgerUntouched(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	first := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(45000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, first, nil))

	got, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.InvoicedAmount.Equal(decimal.NewFromInt(45000)))

	// 45000 + 6000 breaches the 50000 ceiling: nothing may change.
	second := &domain.Invoice{Number: "INV-2", GrossAmount: decimal.NewFromInt(6000)}
	err = e.actualSvc.RecordInvoice(ctx, c.ID, second, nil)
	assert.ErrorIs(t, err, domain.ErrOverInvoiced)

	got, err = e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.InvoicedAmount.Equal(decimal.NewFromInt(45000)),
		"rejected invoice must not move the ledger, got %s", got.InvoicedAmount)

	invoices, err := e.actualSvc.ListInvoices(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	// The remaining headroom still fits.
	third := &domain.Invoice{Number: "INV-3", GrossAmount: decimal.NewFromInt(5000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, third, nil))
}

func TestActualCostService_RecordInvoiceRequiresActiveCommitment(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(1000)}
	assert.ErrorIs(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil), domain.ErrConflict)

	inv.Number = ""
	assert.ErrorIs(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil), domain.ErrValidation)
}

func TestActualCostService_ApproveInvoicePostsActualCost(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(10000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))

	// Recording alone moves no actual cost.
	assert.True(t, reload(t, e, leaf1.ID).ActualCost.IsZero())

	t.Run("approval requires review first", func(t *testing.T) {
		assert.ErrorIs(t, e.actualSvc.ApproveInvoice(ctx, inv.ID, "bob"), domain.ErrConflict)
	})

	require.NoError(t, e.actualSvc.ReviewInvoice(ctx, inv.ID, "alice"))
	require.NoError(t, e.actualSvc.ApproveInvoice(ctx, inv.ID, "bob"))

	assert.True(t, reload(t, e, leaf1.ID).ActualCost.Equal(decimal.NewFromInt(10000)))
	assert.True(t, reload(t, e, root.ID).ActualCost.Equal(decimal.NewFromInt(10000)))

	got, err := e.actualSvc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceApproved, got.Status)
	assert.Equal(t, "bob", got.ApprovedBy)
}

func TestActualCostService_RejectInvoiceReleasesCeiling(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil,
		testutil.WithRetention(decimal.NewFromInt(10)))
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(10000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))

	got, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.InvoicedAmount.Equal(decimal.NewFromInt(10000)))
	assert.True(t, got.RetentionAmount.Equal(decimal.NewFromInt(1000)))

	require.NoError(t, e.actualSvc.RejectInvoice(ctx, inv.ID, "alice"))

	got, err = e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.InvoicedAmount.IsZero(), "rejection releases the ceiling, got %s", got.InvoicedAmount)
	assert.True(t, got.RetentionAmount.IsZero())

	invGot, err := e.actualSvc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceRejected, invGot.Status)
}

func TestActualCostService_ApproveInvoiceTracksWorkPackageFigures(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	require.NoError(t, e.accountSvc.AssignWorkPackage(ctx, a.ID, "wp-1", decimal.NewFromInt(40000)))

	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))
	require.NoError(t, e.commitSvc.AllocateToWorkPackage(ctx, c.ID, "wp-1", decimal.NewFromInt(30000)))
	require.NoError(t, e.commitSvc.AllocateToWorkPackage(ctx, c.ID, "wp-2", decimal.NewFromInt(15000)))

	commitmentWP := func(workPackageID string) *domain.CommitmentWorkPackage {
		t.Helper()
		wps, err := e.commitments.ListWorkPackages(ctx, c.ID)
		require.NoError(t, err)
		for _, w := range wps {
			if w.WorkPackageID == workPackageID {
				return w
			}
		}
		t.Fatalf("no allocation for %s", workPackageID)
		return nil
	}

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(40000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))

	// Recording alone moves no work-package figures.
	assert.True(t, commitmentWP("wp-1").InvoicedAmount.IsZero())

	require.NoError(t, e.actualSvc.ReviewInvoice(ctx, inv.ID, "alice"))
	require.NoError(t, e.actualSvc.ApproveInvoice(ctx, inv.ID, "bob"))

	// 40000 fills wp-1's 30000 allocation, the rest flows into wp-2.
	wp1 := commitmentWP("wp-1")
	assert.True(t, wp1.InvoicedAmount.Equal(decimal.NewFromInt(30000)), "got %s", wp1.InvoicedAmount)
	assert.True(t, wp1.ProgressPercentage.Equal(decimal.NewFromInt(100)))
	wp2 := commitmentWP("wp-2")
	assert.True(t, wp2.InvoicedAmount.Equal(decimal.NewFromInt(10000)), "got %s", wp2.InvoicedAmount)
	assert.True(t, wp2.ProgressPercentage.Equal(decimal.RequireFromString("66.67")), "got %s", wp2.ProgressPercentage)

	allocs, err := e.accounts.ListAllocations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].InvoicedAmount.Equal(decimal.NewFromInt(40000)), "got %s", allocs[0].InvoicedAmount)
	assert.True(t, allocs[0].ProgressPct.Equal(decimal.NewFromInt(100)))

	// A second invoice tops wp-2 out at its allocation; the excess stays
	// unassigned and the account allocation holds at its ceiling.
	second := &domain.Invoice{Number: "INV-2", GrossAmount: decimal.NewFromInt(10000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, second, nil))
	require.NoError(t, e.actualSvc.ReviewInvoice(ctx, second.ID, "alice"))
	require.NoError(t, e.actualSvc.ApproveInvoice(ctx, second.ID, "bob"))

	wp2 = commitmentWP("wp-2")
	assert.True(t, wp2.InvoicedAmount.Equal(decimal.NewFromInt(15000)), "invoiced must cap at allocated, got %s", wp2.InvoicedAmount)
	assert.True(t, wp2.ProgressPercentage.Equal(decimal.NewFromInt(100)))

	allocs, err = e.accounts.ListAllocations(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, allocs[0].InvoicedAmount.Equal(decimal.NewFromInt(40000)), "got %s", allocs[0].InvoicedAmount)
}

func TestActualCostService_RecordPayment(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(10000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))
	require.NoError(t, e.actualSvc.ReviewInvoice(ctx, inv.ID, "alice"))
	require.NoError(t, e.actualSvc.ApproveInvoice(ctx, inv.ID, "bob"))

	require.NoError(t, e.actualSvc.RecordPayment(ctx, inv.ID, decimal.NewFromInt(4000)))

	invGot, err := e.actualSvc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, invGot.PaidAmount.Equal(decimal.NewFromInt(4000)))

	cGot, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cGot.PaidAmount.Equal(decimal.NewFromInt(4000)))

	// 4000 + 7000 exceeds the 10000 total.
	err = e.actualSvc.RecordPayment(ctx, inv.ID, decimal.NewFromInt(7000))
	assert.ErrorIs(t, err, domain.ErrOverpayment)
}

func TestActualCostService_RecordDirectCost(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, leaf2 := seedTree(t, e)
	ctx := context.Background()

	p := &domain.ActualPosting{
		CostNodeID:  leaf1.ID,
		Amount:      decimal.NewFromInt(2500),
		Description: "site survey",
		CreatedBy:   "alice",
	}
	require.NoError(t, e.actualSvc.RecordDirectCost(ctx, p))

	assert.Equal(t, "USD", p.Currency, "currency defaults to the node's")
	assert.True(t, reload(t, e, leaf1.ID).ActualCost.Equal(decimal.NewFromInt(2500)))
	assert.True(t, reload(t, e, root.ID).ActualCost.Equal(decimal.NewFromInt(2500)))

	postings, err := e.actualSvc.ListPostings(ctx, leaf1.ID)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "site survey", postings[0].Description)

	t.Run("non-positive amount", func(t *testing.T) {
		err := e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{CostNodeID: leaf1.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("non-leaf node", func(t *testing.T) {
		err := e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{
			CostNodeID: root.ID,
			Amount:     decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, domain.ErrImmutableNode)
	})

	t.Run("deleted node", func(t *testing.T) {
		require.NoError(t, e.tree.SoftDeleteNode(ctx, leaf2.ID))
		err := e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{
			CostNodeID: leaf2.ID,
			Amount:     decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
