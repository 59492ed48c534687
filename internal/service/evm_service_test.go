package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/contract"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

// seedMeasuredAccount builds a leaf node, an active account over it with a
// baselined curve, recorded progress and direct actual cost.
func seedMeasuredAccount(t *testing.T, e *env, code, accountCode string, bac, periodPV, ac, pct decimal.Decimal, periods int) *domain.ControlAccount {
	t.Helper()
	ctx := context.Background()

	node := testutil.NewTestNode(testProject, code, testutil.WithOriginalBudget(bac))
	require.NoError(t, e.tree.AddNode(ctx, node))

	a := seedActiveAccount(t, e, node, accountCode, bac)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	baselineAccount(t, e, a.ID, start, periods, periodPV)
	require.NoError(t, e.accountSvc.RecordProgress(ctx, a.ID, pct))

	if !ac.IsZero() {
		require.NoError(t, e.actualSvc.RecordDirectCost(ctx, &domain.ActualPosting{
			CostNodeID: node.ID,
			Amount:     ac,
		}))
	}
	return a
}

func TestEVMService_ComputeRecord(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	a := seedMeasuredAccount(t, e, "01", "CA-01",
		decimal.NewFromInt(200000), decimal.NewFromInt(20000),
		decimal.NewFromInt(90000), decimal.NewFromInt(40), 5)
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	rec, err := e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
	require.NoError(t, err)

	assert.True(t, rec.PV.Equal(decimal.NewFromInt(100000)), "PV %s", rec.PV)
	assert.True(t, rec.EV.Equal(decimal.NewFromInt(80000)), "EV %s", rec.EV)
	assert.True(t, rec.AC.Equal(decimal.NewFromInt(90000)), "AC %s", rec.AC)
	assert.True(t, rec.BAC.Equal(decimal.NewFromInt(200000)))
	assert.True(t, rec.EAC.Equal(decimal.NewFromInt(210000)), "EAC %s", rec.EAC)
	assert.True(t, rec.ETC.Equal(decimal.NewFromInt(120000)), "ETC %s", rec.ETC)

	// The snapshot is persisted.
	got, err := e.records.GetByAccountAndDate(ctx, a.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.EV.Equal(decimal.NewFromInt(80000)))
}

func TestEVMService_ComputeRecordRejections(t *testing.T) {
	e := setupEnv(t)
	_, leaf1, _ := seedTree(t, e)
	ctx := context.Background()
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("unknown forecast method", func(t *testing.T) {
		_, err := e.evmSvc.ComputeRecord(ctx, "whatever", asOf, "crystal_ball")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("no baselined revision", func(t *testing.T) {
		a := seedActiveAccount(t, e, leaf1, "CA-01", decimal.NewFromInt(60000))
		_, err := e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
		assert.ErrorIs(t, err, domain.ErrBaselineRequired)
	})
}

func TestEVMService_RecomputeReplacesUnapprovedSnapshot(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	a := seedMeasuredAccount(t, e, "01", "CA-01",
		decimal.NewFromInt(200000), decimal.NewFromInt(20000),
		decimal.NewFromInt(90000), decimal.NewFromInt(40), 5)
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	first, err := e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
	require.NoError(t, err)

	require.NoError(t, e.accountSvc.RecordProgress(ctx, a.ID, decimal.NewFromInt(50)))
	second, err := e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "recompute replaces in place")
	assert.True(t, second.EV.Equal(decimal.NewFromInt(100000)), "EV %s", second.EV)

	records, err := e.evmSvc.ListRecords(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEVMService_ApprovedSnapshotIsImmutable(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	a := seedMeasuredAccount(t, e, "01", "CA-01",
		decimal.NewFromInt(200000), decimal.NewFromInt(20000),
		decimal.NewFromInt(90000), decimal.NewFromInt(40), 5)
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	_, err := e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
	require.NoError(t, err)
	require.NoError(t, e.evmSvc.ApproveRecord(ctx, a.ID, asOf))

	_, err = e.evmSvc.ComputeRecord(ctx, a.ID, asOf, domain.ForecastActualPlusRemaining)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// A different data date is still open.
	_, err = e.evmSvc.ComputeRecord(ctx, a.ID, asOf.AddDate(0, 1, 0), domain.ForecastActualPlusRemaining)
	assert.NoError(t, err)
}

func TestEVMService_RollupProject(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	seedMeasuredAccount(t, e, "01", "CA-01",
		decimal.NewFromInt(100000), decimal.NewFromInt(20000),
		decimal.NewFromInt(30000), decimal.NewFromInt(50), 2)
	seedMeasuredAccount(t, e, "02", "CA-02",
		decimal.NewFromInt(200000), decimal.NewFromInt(50000),
		decimal.NewFromInt(60000), decimal.NewFromInt(25), 2)

	// Draft accounts stay out of the roll-up even without a baseline.
	draftNode := testutil.NewTestNode(testProject, "03")
	require.NoError(t, e.tree.AddNode(ctx, draftNode))
	draft := testutil.NewTestAccount(testProject, draftNode.ID, "CA-03")
	draft.ID = ""
	require.NoError(t, e.accountSvc.Create(ctx, draft))

	sum, err := e.evmSvc.RollupProject(ctx, contract.ReportRequest{
		ProjectID: testProject,
		AsOf:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.AccountCount)
	assert.Equal(t, "USD", sum.Currency)
	assert.True(t, sum.PV.Equal(decimal.NewFromInt(140000)), "PV %s", sum.PV)
	assert.True(t, sum.EV.Equal(decimal.NewFromInt(100000)), "EV %s", sum.EV)
	assert.True(t, sum.AC.Equal(decimal.NewFromInt(90000)), "AC %s", sum.AC)
	assert.True(t, sum.BAC.Equal(decimal.NewFromInt(300000)))
	assert.True(t, sum.EAC.Equal(decimal.NewFromInt(290000)), "EAC %s", sum.EAC)
	assert.True(t, sum.ETC.Equal(decimal.NewFromInt(200000)), "ETC %s", sum.ETC)
	assert.True(t, sum.CV.Equal(decimal.NewFromInt(10000)))
	assert.True(t, sum.SV.Equal(decimal.NewFromInt(-40000)))
	assert.True(t, sum.VAC.Equal(decimal.NewFromInt(10000)))

	// Indices come from the summed figures, not averaged per account.
	assert.True(t, sum.CPI.Equal(decimal.RequireFromString("1.1111")), "CPI %s", sum.CPI)
	assert.True(t, sum.SPI.Equal(decimal.RequireFromString("0.7143")), "SPI %s", sum.SPI)
	require.NotNil(t, sum.TCPI)
	assert.True(t, sum.TCPI.Equal(decimal.RequireFromString("0.9524")), "TCPI %s", sum.TCPI)
}

func TestEVMService_RollupProjectRejections(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	t.Run("missing project", func(t *testing.T) {
		_, err := e.evmSvc.RollupProject(ctx, contract.ReportRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("no active accounts", func(t *testing.T) {
		_, err := e.evmSvc.RollupProject(ctx, contract.ReportRequest{ProjectID: "empty-project"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEVMService_RollupIncludesReservesOnRequest(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	node := testutil.NewTestNode(testProject, "01", testutil.WithOriginalBudget(decimal.NewFromInt(100000)))
	require.NoError(t, e.tree.AddNode(ctx, node))

	a := testutil.NewTestAccount(testProject, node.ID, "CA-01",
		testutil.WithBAC(decimal.NewFromInt(100000)),
		testutil.WithReserves(decimal.NewFromInt(10000), decimal.NewFromInt(5000)))
	a.ID = ""
	require.NoError(t, e.accountSvc.Create(ctx, a))
	require.NoError(t, e.accountSvc.Activate(ctx, a.ID))
	baselineAccount(t, e, a.ID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2, decimal.NewFromInt(50000))

	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	plain, err := e.evmSvc.RollupProject(ctx, contract.ReportRequest{ProjectID: testProject, AsOf: asOf})
	require.NoError(t, err)
	assert.True(t, plain.BAC.Equal(decimal.NewFromInt(100000)))

	withReserves, err := e.evmSvc.RollupProject(ctx, contract.ReportRequest{
		ProjectID:       testProject,
		AsOf:            asOf,
		IncludeReserves: true,
	})
	require.NoError(t, err)
	assert.True(t, withReserves.BAC.Equal(decimal.NewFromInt(115000)),
		"reserves widen BAC only on request, got %s", withReserves.BAC)
}
