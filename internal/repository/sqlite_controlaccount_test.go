package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

func TestControlAccountRepo_CreateAndGet(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteControlAccountRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "CA-01", got.Code)
	assert.Equal(t, domain.AccountDraft, got.Status)
	assert.True(t, got.BAC.Equal(decimal.NewFromInt(100000)))

	byCode, err := repo.GetByCode(ctx, "proj-1", "CA-01")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byCode.ID)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestControlAccountRepo_OptimisticUpdate(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteControlAccountRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)

	stale, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)

	account.PercentComplete = decimal.NewFromInt(40)
	require.NoError(t, repo.Update(ctx, account))

	stale.PercentComplete = decimal.NewFromInt(55)
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrConcurrencyConflict)
}

func TestControlAccountRepo_ListActiveByProject(t *testing.T) {
	database := testutil.NewTestDB(t)
	nodes := NewSQLiteCostNodeRepo(database)
	repo := NewSQLiteControlAccountRepo(database)
	ctx := context.Background()

	_, draft := seedAccount(t, database)

	activeNode := testutil.NewTestNode("proj-1", "02")
	require.NoError(t, nodes.Create(ctx, activeNode))
	active := testutil.NewTestAccount("proj-1", activeNode.ID, "CA-02",
		testutil.WithAccountStatus(domain.AccountActive))
	require.NoError(t, repo.Create(ctx, active))

	all, err := repo.ListByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := repo.ListActiveByProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)
	assert.NotEqual(t, draft.ID, onlyActive[0].ID)
}

func TestControlAccountRepo_SumAllocations(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteControlAccountRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)

	sum, err := repo.SumAllocations(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	for i, amount := range []string{"30000", "25000.50"} {
		require.NoError(t, repo.CreateAllocation(ctx, &domain.WorkPackageAllocation{
			ID:               uuid.New().String(),
			ControlAccountID: account.ID,
			WorkPackageID:    uuid.New().String(),
			AllocatedAmount:  decimal.RequireFromString(amount),
			CreatedAt:        time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	sum, err = repo.SumAllocations(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("55000.50")), "got %s", sum)
}

func TestControlAccountRepo_SumMappingPercent(t *testing.T) {
	database := testutil.NewTestDB(t)
	nodes := NewSQLiteCostNodeRepo(database)
	repo := NewSQLiteControlAccountRepo(database)
	ctx := context.Background()

	nodeA := testutil.NewTestNode("proj-1", "01")
	nodeB := testutil.NewTestNode("proj-1", "02")
	require.NoError(t, nodes.Create(ctx, nodeA))
	require.NoError(t, nodes.Create(ctx, nodeB))

	wp := "wp-1"
	require.NoError(t, repo.CreateMapping(ctx, &domain.WBSCBSMapping{
		ID: uuid.New().String(), WorkPackageID: wp, CostNodeID: nodeA.ID,
		Percent: decimal.NewFromInt(60), CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, repo.CreateMapping(ctx, &domain.WBSCBSMapping{
		ID: uuid.New().String(), WorkPackageID: wp, CostNodeID: nodeB.ID,
		Percent: decimal.NewFromInt(25), CreatedAt: time.Now().UTC(),
	}))

	sum, err := repo.SumMappingPercent(ctx, wp)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(85)), "got %s", sum)
}
