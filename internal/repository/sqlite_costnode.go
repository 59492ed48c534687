package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// costNodeColumns is the canonical SELECT column list for cost_nodes.
const costNodeColumns = `id, project_id, code, description, parent_id, level, is_leaf, currency,
		original_budget, approved_changes, committed_cost, actual_cost, forecast_cost,
		row_version, deleted_at, created_at, updated_at`

// SQLiteCostNodeRepo implements CostNodeRepo using a SQLite database.
type SQLiteCostNodeRepo struct {
	db db.DBTX
}

// NewSQLiteCostNodeRepo creates a new SQLiteCostNodeRepo.
func NewSQLiteCostNodeRepo(db db.DBTX) *SQLiteCostNodeRepo {
	return &SQLiteCostNodeRepo{db: db}
}

func (r *SQLiteCostNodeRepo) Create(ctx context.Context, n *domain.CostNode) error {
	query := `INSERT INTO cost_nodes (id, project_id, code, description, parent_id, level, is_leaf,
		currency, original_budget, approved_changes, committed_cost, actual_cost, forecast_cost,
		row_version, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.ProjectID,
		n.Code,
		n.Description,
		n.ParentID, // *string: nil becomes SQL NULL
		n.Level,
		boolToInt(n.IsLeaf),
		n.Currency,
		n.OriginalBudget.String(),
		n.ApprovedChanges.String(),
		n.CommittedCost.String(),
		n.ActualCost.String(),
		n.ForecastCost.String(),
		n.RowVersion,
		nullableTimeToString(n.DeletedAt, time.RFC3339),
		n.CreatedAt.Format(time.RFC3339),
		n.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting cost node: %w", err)
	}
	return nil
}

func (r *SQLiteCostNodeRepo) GetByID(ctx context.Context, id string) (*domain.CostNode, error) {
	query := `SELECT ` + costNodeColumns + ` FROM cost_nodes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanNode(row)
}

func (r *SQLiteCostNodeRepo) GetByCode(ctx context.Context, projectID, code string) (*domain.CostNode, error) {
	query := `SELECT ` + costNodeColumns + ` FROM cost_nodes WHERE project_id = ? AND code = ?`
	row := r.db.QueryRowContext(ctx, query, projectID, code)
	return r.scanNode(row)
}

func (r *SQLiteCostNodeRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.CostNode, error) {
	query := `SELECT ` + costNodeColumns + ` FROM cost_nodes
		WHERE project_id = ? AND deleted_at IS NULL ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing cost nodes by project: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteCostNodeRepo) ListChildren(ctx context.Context, parentID string) ([]*domain.CostNode, error) {
	query := `SELECT ` + costNodeColumns + ` FROM cost_nodes
		WHERE parent_id = ? AND deleted_at IS NULL ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing child cost nodes: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

// Update writes the node, matching the loaded row_version and bumping it.
// A version miss means another writer got there first.
func (r *SQLiteCostNodeRepo) Update(ctx context.Context, n *domain.CostNode) error {
	query := `UPDATE cost_nodes SET code = ?, description = ?, parent_id = ?, level = ?, is_leaf = ?,
		currency = ?, original_budget = ?, approved_changes = ?, committed_cost = ?,
		actual_cost = ?, forecast_cost = ?, row_version = row_version + 1, updated_at = ?
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		n.Code,
		n.Description,
		n.ParentID,
		n.Level,
		boolToInt(n.IsLeaf),
		n.Currency,
		n.OriginalBudget.String(),
		n.ApprovedChanges.String(),
		n.CommittedCost.String(),
		n.ActualCost.String(),
		n.ForecastCost.String(),
		n.UpdatedAt.Format(time.RFC3339),
		n.ID,
		n.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating cost node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking cost node update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("cost node %s at version %d: %w", n.Code, n.RowVersion, domain.ErrConcurrencyConflict)
	}
	n.RowVersion++
	return nil
}

func (r *SQLiteCostNodeRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE cost_nodes SET deleted_at = ?, row_version = row_version + 1, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, at.Format(time.RFC3339), at.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("soft-deleting cost node: %w", err)
	}
	return nil
}

func (r *SQLiteCostNodeRepo) AddBudgetChange(ctx context.Context, c *domain.BudgetChange) error {
	query := `INSERT INTO budget_changes (id, cost_node_id, amount, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.CostNodeID, c.Amount.String(), c.Reason, c.CreatedBy,
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting budget change: %w", err)
	}
	return nil
}

func (r *SQLiteCostNodeRepo) ListBudgetChanges(ctx context.Context, nodeID string) ([]*domain.BudgetChange, error) {
	query := `SELECT id, cost_node_id, amount, reason, created_by, created_at
		FROM budget_changes WHERE cost_node_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing budget changes: %w", err)
	}
	defer rows.Close()

	var changes []*domain.BudgetChange
	for rows.Next() {
		var c domain.BudgetChange
		var amountStr, createdAtStr string
		if err := rows.Scan(&c.ID, &c.CostNodeID, &amountStr, &c.Reason, &c.CreatedBy, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning budget change: %w", err)
		}
		if c.Amount, err = parseDecimal(amountStr); err != nil {
			return nil, fmt.Errorf("parsing budget change amount: %w", err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing budget change created_at: %w", err)
		}
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget changes: %w", err)
	}
	return changes, nil
}

// scanNode scans a single cost node from a *sql.Row.
func (r *SQLiteCostNodeRepo) scanNode(row *sql.Row) (*domain.CostNode, error) {
	var n domain.CostNode
	var parentID, deletedAtStr sql.NullString
	var isLeafInt int
	var origStr, changesStr, committedStr, actualStr, forecastStr string
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&n.ID, &n.ProjectID, &n.Code, &n.Description, &parentID, &n.Level, &isLeafInt, &n.Currency,
		&origStr, &changesStr, &committedStr, &actualStr, &forecastStr,
		&n.RowVersion, &deletedAtStr, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("cost node: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning cost node: %w", err)
	}
	return r.populateNode(&n, parentID, deletedAtStr, isLeafInt,
		origStr, changesStr, committedStr, actualStr, forecastStr, createdAtStr, updatedAtStr)
}

// scanNodes scans multiple cost nodes from *sql.Rows.
func (r *SQLiteCostNodeRepo) scanNodes(rows *sql.Rows) ([]*domain.CostNode, error) {
	var nodes []*domain.CostNode
	for rows.Next() {
		var n domain.CostNode
		var parentID, deletedAtStr sql.NullString
		var isLeafInt int
		var origStr, changesStr, committedStr, actualStr, forecastStr string
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&n.ID, &n.ProjectID, &n.Code, &n.Description, &parentID, &n.Level, &isLeafInt, &n.Currency,
			&origStr, &changesStr, &committedStr, &actualStr, &forecastStr,
			&n.RowVersion, &deletedAtStr, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning cost node row: %w", err)
		}
		node, err := r.populateNode(&n, parentID, deletedAtStr, isLeafInt,
			origStr, changesStr, committedStr, actualStr, forecastStr, createdAtStr, updatedAtStr)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cost nodes: %w", err)
	}
	return nodes, nil
}

// populateNode fills in parsed fields on a CostNode after scanning raw strings.
func (r *SQLiteCostNodeRepo) populateNode(
	n *domain.CostNode,
	parentID, deletedAtStr sql.NullString,
	isLeafInt int,
	origStr, changesStr, committedStr, actualStr, forecastStr string,
	createdAtStr, updatedAtStr string,
) (*domain.CostNode, error) {
	n.IsLeaf = intToBool(isLeafInt)
	if parentID.Valid {
		n.ParentID = &parentID.String
	}
	n.DeletedAt = parseNullableTime(deletedAtStr, time.RFC3339)

	var err error
	if n.OriginalBudget, err = parseDecimal(origStr); err != nil {
		return nil, fmt.Errorf("parsing original budget: %w", err)
	}
	if n.ApprovedChanges, err = parseDecimal(changesStr); err != nil {
		return nil, fmt.Errorf("parsing approved changes: %w", err)
	}
	if n.CommittedCost, err = parseDecimal(committedStr); err != nil {
		return nil, fmt.Errorf("parsing committed cost: %w", err)
	}
	if n.ActualCost, err = parseDecimal(actualStr); err != nil {
		return nil, fmt.Errorf("parsing actual cost: %w", err)
	}
	if n.ForecastCost, err = parseDecimal(forecastStr); err != nil {
		return nil, fmt.Errorf("parsing forecast cost: %w", err)
	}
	if n.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return n, nil
}
