package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

const testProject = "proj-1"

// env bundles a test database with all repositories and services wired the
// way main wires them.
type env struct {
	database *sql.DB
	uow      db.UnitOfWork

	nodes       repository.CostNodeRepo
	accounts    repository.ControlAccountRepo
	budgets     repository.BudgetRepo
	commitments repository.CommitmentRepo
	invoices    repository.InvoiceRepo
	records     repository.EVMRecordRepo
	rates       repository.ExchangeRateRepo

	tree        CostTreeService
	accountSvc  AccountService
	baselineSvc BaselineService
	commitSvc   CommitmentService
	actualSvc   ActualCostService
	evmSvc      EVMService
	reportSvc   ReportService
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	return newEnv(testutil.NewTestDB(t))
}

func newEnv(database *sql.DB) *env {
	uow := testutil.NewTestUoW(database)

	e := &env{
		database:    database,
		uow:         uow,
		nodes:       repository.NewSQLiteCostNodeRepo(database),
		accounts:    repository.NewSQLiteControlAccountRepo(database),
		budgets:     repository.NewSQLiteBudgetRepo(database),
		commitments: repository.NewSQLiteCommitmentRepo(database),
		invoices:    repository.NewSQLiteInvoiceRepo(database),
		records:     repository.NewSQLiteEVMRecordRepo(database),
		rates:       repository.NewSQLiteExchangeRateRepo(database),
	}
	e.tree = NewCostTreeService(e.nodes, uow)
	e.accountSvc = NewAccountService(e.accounts, e.nodes, e.commitments, uow)
	e.baselineSvc = NewBaselineService(e.budgets, e.accounts, uow)
	e.commitSvc = NewCommitmentService(e.commitments, e.accounts, e.nodes, uow)
	e.actualSvc = NewActualCostService(e.invoices, e.commitments, e.accounts, e.nodes, uow)
	e.evmSvc = NewEVMService(e.accounts, e.budgets, e.nodes, e.records, uow)
	e.reportSvc = NewReportService(e.accounts, e.budgets, e.nodes, uow)
	return e
}

// seedTree builds a root with two budgeted leaves through the service, so all
// roll-up invariants hold. Returns the reloaded root and leaves.
func seedTree(t *testing.T, e *env) (root, leaf1, leaf2 *domain.CostNode) {
	t.Helper()
	ctx := context.Background()

	rootNode := testutil.NewTestNode(testProject, "01")
	require.NoError(t, e.tree.AddNode(ctx, rootNode))

	l1 := testutil.NewTestNode(testProject, "01.01",
		testutil.WithParentID(rootNode.ID),
		testutil.WithOriginalBudget(decimal.NewFromInt(60000)))
	require.NoError(t, e.tree.AddNode(ctx, l1))

	l2 := testutil.NewTestNode(testProject, "01.02",
		testutil.WithParentID(rootNode.ID),
		testutil.WithOriginalBudget(decimal.NewFromInt(40000)))
	require.NoError(t, e.tree.AddNode(ctx, l2))

	return reload(t, e, rootNode.ID), reload(t, e, l1.ID), reload(t, e, l2.ID)
}

func reload(t *testing.T, e *env, nodeID string) *domain.CostNode {
	t.Helper()
	n, err := e.nodes.GetByID(context.Background(), nodeID)
	require.NoError(t, err)
	return n
}

// seedActiveAccount creates an active control account over the given leaf.
func seedActiveAccount(t *testing.T, e *env, node *domain.CostNode, code string, bac decimal.Decimal) *domain.ControlAccount {
	t.Helper()
	ctx := context.Background()

	a := testutil.NewTestAccount(testProject, node.ID, code, testutil.WithBAC(bac))
	a.ID = ""
	require.NoError(t, e.accountSvc.Create(ctx, a))
	require.NoError(t, e.accountSvc.Activate(ctx, a.ID))

	got, err := e.accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	return got
}

// baselineAccount runs a revision through the full approval workflow with n
// monthly periods of pv each, starting at start.
func baselineAccount(t *testing.T, e *env, accountID string, start time.Time, n int, pv decimal.Decimal) *domain.BudgetRevision {
	t.Helper()
	ctx := context.Background()

	rev, err := e.baselineSvc.CreateRevision(ctx, accountID)
	require.NoError(t, err)
	require.NoError(t, e.baselineSvc.AddPeriods(ctx, rev.ID, testutil.NewTestPeriods(accountID, rev.ID, start, n, pv)))
	require.NoError(t, e.baselineSvc.Submit(ctx, rev.ID, "alice"))
	require.NoError(t, e.baselineSvc.Approve(ctx, rev.ID, "bob", "ok"))
	require.NoError(t, e.baselineSvc.SetAsBaseline(ctx, rev.ID))

	got, err := e.budgets.GetRevision(ctx, rev.ID)
	require.NoError(t, err)
	return got
}
