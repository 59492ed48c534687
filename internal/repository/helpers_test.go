package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

// seedAccount inserts a leaf cost node and a control account over it,
// satisfying the foreign keys that the budget, commitment and EVM tables
// reference.
func seedAccount(t *testing.T, database *sql.DB) (*domain.CostNode, *domain.ControlAccount) {
	t.Helper()
	ctx := context.Background()

	node := testutil.NewTestNode("proj-1", "01")
	require.NoError(t, NewSQLiteCostNodeRepo(database).Create(ctx, node))

	account := testutil.NewTestAccount("proj-1", node.ID, "CA-01")
	require.NoError(t, NewSQLiteControlAccountRepo(database).Create(ctx, account))

	return node, account
}
