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

func newRevision(accountID string, number int, status domain.RevisionStatus) *domain.BudgetRevision {
	now := time.Now().UTC()
	return &domain.BudgetRevision{
		ID:               uuid.New().String(),
		ControlAccountID: accountID,
		RevisionNumber:   number,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestBudgetRepo_RevisionNumbering(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteBudgetRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)

	next, err := repo.NextRevisionNumber(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, repo.CreateRevision(ctx, newRevision(account.ID, 1, domain.RevisionDraft)))
	require.NoError(t, repo.CreateRevision(ctx, newRevision(account.ID, 2, domain.RevisionDraft)))

	next, err = repo.NextRevisionNumber(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	revs, err := repo.ListRevisions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 1, revs[0].RevisionNumber)
	assert.Equal(t, 2, revs[1].RevisionNumber)
}

func TestBudgetRepo_GetBaselined(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteBudgetRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)

	_, err := repo.GetBaselined(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.CreateRevision(ctx, newRevision(account.ID, 1, domain.RevisionArchived)))
	baselined := newRevision(account.ID, 2, domain.RevisionBaselined)
	require.NoError(t, repo.CreateRevision(ctx, baselined))

	got, err := repo.GetBaselined(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, baselined.ID, got.ID)
}

func TestBudgetRepo_CumulativePVAt(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteBudgetRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)
	rev := newRevision(account.ID, 1, domain.RevisionBaselined)
	require.NoError(t, repo.CreateRevision(ctx, rev))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, row := range testutil.NewTestPeriods(account.ID, rev.ID, start, 3, decimal.NewFromInt(10000)) {
		require.NoError(t, repo.CreateTimePhased(ctx, row))
	}

	// Mid second period: the second row's cumulative applies.
	pv, err := repo.CumulativePVAt(ctx, rev.ID, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, pv.Equal(decimal.NewFromInt(20000)), "got %s", pv)

	// Before the first period the planned value is zero.
	pv, err = repo.CumulativePVAt(ctx, rev.ID, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, pv.IsZero())

	// After the last period the full cumulative applies.
	pv, err = repo.CumulativePVAt(ctx, rev.ID, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, pv.Equal(decimal.NewFromInt(30000)), "got %s", pv)
}

func TestBudgetRepo_SetBaselineFlag(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteBudgetRepo(database)
	ctx := context.Background()

	_, account := seedAccount(t, database)
	rev := newRevision(account.ID, 1, domain.RevisionApproved)
	require.NoError(t, repo.CreateRevision(ctx, rev))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, row := range testutil.NewTestPeriods(account.ID, rev.ID, start, 2, decimal.NewFromInt(5000)) {
		require.NoError(t, repo.CreateTimePhased(ctx, row))
	}

	require.NoError(t, repo.SetBaselineFlag(ctx, rev.ID, true))

	rows, err := repo.ListTimePhased(ctx, rev.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.IsBaseline)
	}
}
