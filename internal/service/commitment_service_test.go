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

// createCommitment runs a commitment through create and approve.
func createCommitment(t *testing.T, e *env, accountID, code string, amount decimal.Decimal, items []*domain.CommitmentItem, opts ...testutil.CommitmentOption) *domain.Commitment {
	t.Helper()
	ctx := context.Background()

	c := testutil.NewTestCommitment(testProject, accountID, code, amount, opts...)
	c.ID = ""
	require.NoError(t, e.commitSvc.Create(ctx, c, items))
	require.NoError(t, e.commitSvc.Approve(ctx, c.ID))
	return c
}

func TestCommitmentService_CreateRejections(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))

	t.Run("zero amount", func(t *testing.T) {
		c := testutil.NewTestCommitment(testProject, a.ID, "PO-1", decimal.Zero)
		assert.ErrorIs(t, e.commitSvc.Create(ctx, c, nil), domain.ErrValidation)
	})

	t.Run("retention outside range", func(t *testing.T) {
		c := testutil.NewTestCommitment(testProject, a.ID, "PO-2", decimal.NewFromInt(1000),
			testutil.WithRetention(decimal.NewFromInt(150)))
		assert.ErrorIs(t, e.commitSvc.Create(ctx, c, nil), domain.ErrValidation)
	})

	t.Run("line charging a non-leaf node", func(t *testing.T) {
		c := testutil.NewTestCommitment(testProject, a.ID, "PO-3", decimal.NewFromInt(1000))
		items := []*domain.CommitmentItem{{
			BudgetItemID: root.ID,
			Quantity:     decimal.NewFromInt(1),
			UnitPrice:    decimal.NewFromInt(1000),
		}}
		assert.ErrorIs(t, e.commitSvc.Create(ctx, c, items), domain.ErrImmutableNode)
	})

	t.Run("missing control account", func(t *testing.T) {
		c := testutil.NewTestCommitment(testProject, "nope", "PO-4", decimal.NewFromInt(1000))
		assert.ErrorIs(t, e.commitSvc.Create(ctx, c, nil), domain.ErrNotFound)
	})
}

func TestCommitmentService_ActivatePostsCommittedCost(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, leaf2 := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))

	items := []*domain.CommitmentItem{
		{BudgetItemID: leaf1.ID, Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(300)},
		{BudgetItemID: leaf2.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(20000)},
	}
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), items)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	got, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitmentActive, got.Status)

	// Each line's net amount lands on its budget item, and the root carries
	// the sum.
	assert.True(t, reload(t, e, leaf1.ID).CommittedCost.Equal(decimal.NewFromInt(30000)))
	assert.True(t, reload(t, e, leaf2.ID).CommittedCost.Equal(decimal.NewFromInt(20000)))
	assert.True(t, reload(t, e, root.ID).CommittedCost.Equal(decimal.NewFromInt(50000)))

	// Committed cost below budget does not move the forecast.
	assert.True(t, reload(t, e, leaf1.ID).ForecastCost.Equal(decimal.NewFromInt(60000)))
}

func TestCommitmentService_ActivateWithoutLinesChargesAccountNode(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(80000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	got := reload(t, e, leaf1.ID)
	assert.True(t, got.CommittedCost.Equal(decimal.NewFromInt(80000)))

	// Committed above budget pulls the forecast up.
	assert.True(t, got.ForecastCost.Equal(decimal.NewFromInt(80000)), "got %s", got.ForecastCost)
}

func TestCommitmentService_ActivateRequiresApproval(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := testutil.NewTestCommitment(testProject, a.ID, "PO-1", decimal.NewFromInt(1000))
	c.ID = ""
	require.NoError(t, e.commitSvc.Create(ctx, c, nil))

	assert.ErrorIs(t, e.commitSvc.Activate(ctx, c.ID), domain.ErrConflict)
}

func TestCommitmentService_ReviseKeepsHistoryAndPostsDelta(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	require.NoError(t, e.commitSvc.Revise(ctx, c.ID, decimal.NewFromInt(60000), "change order 1", "bob"))

	got, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.OriginalAmount.Equal(decimal.NewFromInt(50000)), "original amount never moves")
	assert.True(t, got.RevisedAmount.Equal(decimal.NewFromInt(60000)))
	assert.True(t, got.CommittedAmount.Equal(decimal.NewFromInt(60000)))

	revs, err := e.commitSvc.ListRevisions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].RevisionNumber)
	assert.True(t, revs[0].PreviousAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, revs[0].RevisedAmount.Equal(decimal.NewFromInt(60000)))
	assert.Equal(t, "change order 1", revs[0].Reason)

	// The delta posts to the charged node.
	assert.True(t, reload(t, e, leaf1.ID).CommittedCost.Equal(decimal.NewFromInt(60000)))
}

func TestCommitmentService_ReviseBelowInvoicedRejected(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(40000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))

	assert.ErrorIs(t, e.commitSvc.Revise(ctx, c.ID, decimal.NewFromInt(30000), "cut", "bob"), domain.ErrConflict)
}

func TestCommitmentService_AllocateToWorkPackageCapsAtCommitted(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)

	require.NoError(t, e.commitSvc.AllocateToWorkPackage(ctx, c.ID, "wp-1", decimal.NewFromInt(30000)))

	err := e.commitSvc.AllocateToWorkPackage(ctx, c.ID, "wp-2", decimal.NewFromInt(25000))
	assert.ErrorIs(t, err, domain.ErrOverAllocation)
}

func TestCommitmentService_CloseRequiresFullPayment(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(100000))
	c := createCommitment(t, e, a.ID, "PO-100", decimal.NewFromInt(50000), nil)
	require.NoError(t, e.commitSvc.Activate(ctx, c.ID))

	inv := &domain.Invoice{Number: "INV-1", GrossAmount: decimal.NewFromInt(10000)}
	require.NoError(t, e.actualSvc.RecordInvoice(ctx, c.ID, inv, nil))

	assert.ErrorIs(t, e.commitSvc.Close(ctx, c.ID), domain.ErrConflict)

	require.NoError(t, e.actualSvc.ReviewInvoice(ctx, inv.ID, "alice"))
	require.NoError(t, e.actualSvc.ApproveInvoice(ctx, inv.ID, "bob"))
	require.NoError(t, e.actualSvc.RecordPayment(ctx, inv.ID, decimal.NewFromInt(10000)))

	require.NoError(t, e.commitSvc.Close(ctx, c.ID))
	got, err := e.commitSvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitmentClosed, got.Status)
}
