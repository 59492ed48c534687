package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

func TestCostTreeService_AddNodeBuildsHierarchy(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, leaf2 := seedTree(t, e)

	assert.False(t, root.IsLeaf, "root gained children and must not stay a leaf")
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, 1, leaf1.Level)
	assert.Equal(t, 1, leaf2.Level)
	assert.True(t, leaf1.IsLeaf)

	// Parent figures roll up from the children at insert time.
	assert.True(t, root.OriginalBudget.Equal(decimal.NewFromInt(100000)),
		"root budget should be the leaf sum, got %s", root.OriginalBudget)
}

func TestCostTreeService_AddNodeRejections(t *testing.T) {
	e := setupEnv(t)
	root, _, _ := seedTree(t, e)
	ctx := context.Background()

	t.Run("invalid code", func(t *testing.T) {
		n := testutil.NewTestNode(testProject, "1x")
		assert.ErrorIs(t, e.tree.AddNode(ctx, n), domain.ErrValidation)
	})

	t.Run("code must extend parent code", func(t *testing.T) {
		n := testutil.NewTestNode(testProject, "02.01", testutil.WithParentID(root.ID))
		assert.ErrorIs(t, e.tree.AddNode(ctx, n), domain.ErrInvalidHierarchy)
	})

	t.Run("missing parent", func(t *testing.T) {
		n := testutil.NewTestNode(testProject, "03.01", testutil.WithParentID("nope"))
		assert.ErrorIs(t, e.tree.AddNode(ctx, n), domain.ErrInvalidHierarchy)
	})

	t.Run("missing currency", func(t *testing.T) {
		n := testutil.NewTestNode(testProject, "04", testutil.WithNodeCurrency(""))
		assert.ErrorIs(t, e.tree.AddNode(ctx, n), domain.ErrValidation)
	})
}

func TestCostTreeService_LeafWithPostingsCannotGainChildren(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	leaf := testutil.NewTestNode(testProject, "02",
		testutil.WithOriginalBudget(decimal.NewFromInt(10000)))
	require.NoError(t, e.tree.AddNode(ctx, leaf))
	require.NoError(t, e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{
		CostNodeID: leaf.ID,
		Amount:     decimal.NewFromInt(500),
	}))

	child := testutil.NewTestNode(testProject, "02.01", testutil.WithParentID(leaf.ID))
	assert.ErrorIs(t, e.tree.AddNode(ctx, child), domain.ErrConflict)
}

func TestCostTreeService_ApplyApprovedChangeConservesBudget(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, leaf2 := seedTree(t, e)
	ctx := context.Background()

	require.NoError(t, e.tree.ApplyApprovedChange(ctx, leaf1.ID, decimal.NewFromInt(10000), "scope add", "alice"))
	require.NoError(t, e.tree.ApplyApprovedChange(ctx, leaf2.ID, decimal.NewFromInt(-5000), "scope cut", "alice"))

	leaf1 = reload(t, e, leaf1.ID)
	leaf2 = reload(t, e, leaf2.ID)
	root = reload(t, e, root.ID)

	assert.True(t, leaf1.CurrentBudget().Equal(decimal.NewFromInt(70000)), "got %s", leaf1.CurrentBudget())
	assert.True(t, leaf2.CurrentBudget().Equal(decimal.NewFromInt(35000)), "got %s", leaf2.CurrentBudget())

	// The root's current budget equals the sum of its leaves after any change.
	assert.True(t, root.CurrentBudget().Equal(decimal.NewFromInt(105000)), "got %s", root.CurrentBudget())
	assert.True(t, root.ApprovedChanges.Equal(decimal.NewFromInt(5000)), "got %s", root.ApprovedChanges)

	changes, err := e.tree.ListBudgetChanges(ctx, leaf1.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "scope add", changes[0].Reason)
	assert.Equal(t, "alice", changes[0].CreatedBy)
}

func TestCostTreeService_ApplyApprovedChangeRejections(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	t.Run("zero amount", func(t *testing.T) {
		err := e.tree.ApplyApprovedChange(ctx, leaf1.ID, decimal.Zero, "noop", "alice")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("non-leaf target", func(t *testing.T) {
		err := e.tree.ApplyApprovedChange(ctx, root.ID, decimal.NewFromInt(1000), "x", "alice")
		assert.ErrorIs(t, err, domain.ErrImmutableNode)
	})

	t.Run("would turn budget negative", func(t *testing.T) {
		err := e.tree.ApplyApprovedChange(ctx, leaf1.ID, decimal.NewFromInt(-60001), "x", "alice")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCostTreeService_RecomputeRollupsMultiCurrency(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	require.NoError(t, e.rates.Create(ctx,
		testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.1"), yesterday)))

	root := testutil.NewTestNode(testProject, "05")
	require.NoError(t, e.tree.AddNode(ctx, root))
	leaf := testutil.NewTestNode(testProject, "05.01",
		testutil.WithParentID(root.ID),
		testutil.WithNodeCurrency("EUR"),
		testutil.WithOriginalBudget(decimal.NewFromInt(1000)))
	require.NoError(t, e.tree.AddNode(ctx, leaf))

	got := reload(t, e, root.ID)
	assert.True(t, got.OriginalBudget.Equal(decimal.NewFromInt(1100)),
		"EUR leaf should convert at 1.10, got %s", got.OriginalBudget)

	// Recomputing from scratch lands on the same figures.
	require.NoError(t, e.tree.RecomputeRollups(ctx, root.ID, time.Now().UTC()))
	again := reload(t, e, root.ID)
	assert.True(t, again.OriginalBudget.Equal(got.OriginalBudget))
	assert.True(t, again.ForecastCost.Equal(got.ForecastCost))
}

func TestCostTreeService_ApplyApprovedChangeRollsBackMidway(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()

	// Fail on the ancestor update, after the leaf write and the change row.
	boom := errors.New("disk full")
	failing := NewCostTreeService(e.nodes, &testutil.FailOnNthExecUoW{DB: e.database, FailOn: 3, Err: boom})

	err := failing.ApplyApprovedChange(ctx, leaf1.ID, decimal.NewFromInt(10000), "scope add", "alice")
	assert.ErrorIs(t, err, boom)

	got := reload(t, e, leaf1.ID)
	assert.True(t, got.ApprovedChanges.IsZero(), "partial writes must roll back, got %s", got.ApprovedChanges)

	changes, err := e.tree.ListBudgetChanges(ctx, leaf1.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestCostTreeService_SoftDeleteNode(t *testing.T) {
	e := setupEnv(t)
	root, leaf1, leaf2 := seedTree(t, e)
	ctx := context.Background()

	t.Run("node with children", func(t *testing.T) {
		assert.ErrorIs(t, e.tree.SoftDeleteNode(ctx, root.ID), domain.ErrConflict)
	})

	t.Run("node with postings", func(t *testing.T) {
		require.NoError(t, e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{
			CostNodeID: leaf1.ID,
			Amount:     decimal.NewFromInt(100),
		}))
		assert.ErrorIs(t, e.tree.SoftDeleteNode(ctx, leaf1.ID), domain.ErrConflict)
	})

	t.Run("clean leaf deletes and re-rolls ancestors", func(t *testing.T) {
		require.NoError(t, e.tree.SoftDeleteNode(ctx, leaf2.ID))

		got := reload(t, e, root.ID)
		assert.True(t, got.OriginalBudget.Equal(decimal.NewFromInt(60000)),
			"deleted leaf should drop out of the roll-up, got %s", got.OriginalBudget)

		nodes, err := e.tree.ListByProject(ctx, testProject)
		require.NoError(t, err)
		for _, n := range nodes {
			assert.NotEqual(t, leaf2.ID, n.ID)
		}

		// Deleting again is a no-op.
		assert.NoError(t, e.tree.SoftDeleteNode(ctx, leaf2.ID))
	})
}
