package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// budgetRevisionColumns is the canonical SELECT column list for budget_revisions.
const budgetRevisionColumns = `id, control_account_id, revision_number, status, comments,
		submitted_by, approved_by, baselined_at, created_at, updated_at`

// timePhasedColumns is the canonical SELECT column list for time_phased_budgets.
const timePhasedColumns = `id, control_account_id, revision_id, period_start, period_end,
		planned_value, cumulative_planned_value, labor_cost, material_cost, equipment_cost,
		subcontract_cost, other_cost, is_baseline, created_at`

// SQLiteBudgetRepo implements BudgetRepo using a SQLite database.
type SQLiteBudgetRepo struct {
	db db.DBTX
}

// NewSQLiteBudgetRepo creates a new SQLiteBudgetRepo.
func NewSQLiteBudgetRepo(db db.DBTX) *SQLiteBudgetRepo {
	return &SQLiteBudgetRepo{db: db}
}

func (r *SQLiteBudgetRepo) CreateRevision(ctx context.Context, rev *domain.BudgetRevision) error {
	query := `INSERT INTO budget_revisions (id, control_account_id, revision_number, status, comments,
		submitted_by, approved_by, baselined_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rev.ID,
		rev.ControlAccountID,
		rev.RevisionNumber,
		string(rev.Status),
		rev.Comments,
		rev.SubmittedBy,
		rev.ApprovedBy,
		nullableTimeToString(rev.BaselinedAt, time.RFC3339),
		rev.CreatedAt.Format(time.RFC3339),
		rev.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting budget revision: %w", err)
	}
	return nil
}

func (r *SQLiteBudgetRepo) GetRevision(ctx context.Context, id string) (*domain.BudgetRevision, error) {
	query := `SELECT ` + budgetRevisionColumns + ` FROM budget_revisions WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanRevision(row)
}

// GetBaselined returns the single baselined revision of a control account.
func (r *SQLiteBudgetRepo) GetBaselined(ctx context.Context, accountID string) (*domain.BudgetRevision, error) {
	query := `SELECT ` + budgetRevisionColumns + ` FROM budget_revisions
		WHERE control_account_id = ? AND status = 'baselined'`
	row := r.db.QueryRowContext(ctx, query, accountID)
	return r.scanRevision(row)
}

func (r *SQLiteBudgetRepo) ListRevisions(ctx context.Context, accountID string) ([]*domain.BudgetRevision, error) {
	query := `SELECT ` + budgetRevisionColumns + ` FROM budget_revisions
		WHERE control_account_id = ? ORDER BY revision_number`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing budget revisions: %w", err)
	}
	defer rows.Close()

	var revs []*domain.BudgetRevision
	for rows.Next() {
		rev, err := r.scanRevisionRow(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget revisions: %w", err)
	}
	return revs, nil
}

func (r *SQLiteBudgetRepo) NextRevisionNumber(ctx context.Context, accountID string) (int, error) {
	query := `SELECT COALESCE(MAX(revision_number), 0) + 1 FROM budget_revisions WHERE control_account_id = ?`
	var next int
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next revision number for account %s: %w", accountID, err)
	}
	return next, nil
}

func (r *SQLiteBudgetRepo) UpdateRevision(ctx context.Context, rev *domain.BudgetRevision) error {
	query := `UPDATE budget_revisions SET status = ?, comments = ?, submitted_by = ?, approved_by = ?,
		baselined_at = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		string(rev.Status),
		rev.Comments,
		rev.SubmittedBy,
		rev.ApprovedBy,
		nullableTimeToString(rev.BaselinedAt, time.RFC3339),
		rev.UpdatedAt.Format(time.RFC3339),
		rev.ID,
	)
	if err != nil {
		return fmt.Errorf("updating budget revision: %w", err)
	}
	return nil
}

func (r *SQLiteBudgetRepo) CreateTimePhased(ctx context.Context, row *domain.TimePhasedBudget) error {
	query := `INSERT INTO time_phased_budgets (id, control_account_id, revision_id, period_start, period_end,
		planned_value, cumulative_planned_value, labor_cost, material_cost, equipment_cost,
		subcontract_cost, other_cost, is_baseline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		row.ID,
		row.ControlAccountID,
		row.RevisionID,
		row.PeriodStart.Format(dateLayout),
		row.PeriodEnd.Format(dateLayout),
		row.PlannedValue.String(),
		row.CumulativePlannedValue.String(),
		row.LaborCost.String(),
		row.MaterialCost.String(),
		row.EquipmentCost.String(),
		row.SubcontractCost.String(),
		row.OtherCost.String(),
		boolToInt(row.IsBaseline),
		row.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting time-phased budget row: %w", err)
	}
	return nil
}

func (r *SQLiteBudgetRepo) ListTimePhased(ctx context.Context, revisionID string) ([]*domain.TimePhasedBudget, error) {
	query := `SELECT ` + timePhasedColumns + ` FROM time_phased_budgets
		WHERE revision_id = ? ORDER BY period_start`
	rows, err := r.db.QueryContext(ctx, query, revisionID)
	if err != nil {
		return nil, fmt.Errorf("listing time-phased budget rows: %w", err)
	}
	defer rows.Close()

	var out []*domain.TimePhasedBudget
	for rows.Next() {
		var t domain.TimePhasedBudget
		var startStr, endStr string
		var pvStr, cumStr, laborStr, matStr, equipStr, subStr, otherStr string
		var baselineInt int
		var createdAtStr string

		err := rows.Scan(
			&t.ID, &t.ControlAccountID, &t.RevisionID, &startStr, &endStr,
			&pvStr, &cumStr, &laborStr, &matStr, &equipStr, &subStr, &otherStr,
			&baselineInt, &createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning time-phased budget row: %w", err)
		}
		t.IsBaseline = intToBool(baselineInt)
		if t.PeriodStart, err = time.Parse(dateLayout, startStr); err != nil {
			return nil, fmt.Errorf("parsing period start: %w", err)
		}
		if t.PeriodEnd, err = time.Parse(dateLayout, endStr); err != nil {
			return nil, fmt.Errorf("parsing period end: %w", err)
		}
		if t.PlannedValue, err = parseDecimal(pvStr); err != nil {
			return nil, fmt.Errorf("parsing planned value: %w", err)
		}
		if t.CumulativePlannedValue, err = parseDecimal(cumStr); err != nil {
			return nil, fmt.Errorf("parsing cumulative planned value: %w", err)
		}
		if t.LaborCost, err = parseDecimal(laborStr); err != nil {
			return nil, fmt.Errorf("parsing labor cost: %w", err)
		}
		if t.MaterialCost, err = parseDecimal(matStr); err != nil {
			return nil, fmt.Errorf("parsing material cost: %w", err)
		}
		if t.EquipmentCost, err = parseDecimal(equipStr); err != nil {
			return nil, fmt.Errorf("parsing equipment cost: %w", err)
		}
		if t.SubcontractCost, err = parseDecimal(subStr); err != nil {
			return nil, fmt.Errorf("parsing subcontract cost: %w", err)
		}
		if t.OtherCost, err = parseDecimal(otherStr); err != nil {
			return nil, fmt.Errorf("parsing other cost: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time-phased budget rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteBudgetRepo) SetBaselineFlag(ctx context.Context, revisionID string, baseline bool) error {
	query := `UPDATE time_phased_budgets SET is_baseline = ? WHERE revision_id = ?`
	_, err := r.db.ExecContext(ctx, query, boolToInt(baseline), revisionID)
	if err != nil {
		return fmt.Errorf("setting baseline flag: %w", err)
	}
	return nil
}

// CumulativePVAt returns the cumulative planned value of the latest period
// starting on or before asOf. A date before the first period yields zero.
func (r *SQLiteBudgetRepo) CumulativePVAt(ctx context.Context, revisionID string, asOf time.Time) (decimal.Decimal, error) {
	query := `SELECT cumulative_planned_value FROM time_phased_budgets
		WHERE revision_id = ? AND period_start <= ?
		ORDER BY period_start DESC LIMIT 1`
	var cumStr string
	err := r.db.QueryRowContext(ctx, query, revisionID, asOf.Format(dateLayout)).Scan(&cumStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("reading cumulative planned value: %w", err)
	}
	return parseDecimal(cumStr)
}

// scanRevision scans a single budget revision from a *sql.Row.
func (r *SQLiteBudgetRepo) scanRevision(row *sql.Row) (*domain.BudgetRevision, error) {
	var rev domain.BudgetRevision
	var statusStr string
	var baselinedAtStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&rev.ID, &rev.ControlAccountID, &rev.RevisionNumber, &statusStr, &rev.Comments,
		&rev.SubmittedBy, &rev.ApprovedBy, &baselinedAtStr, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("budget revision: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning budget revision: %w", err)
	}
	return r.populateRevision(&rev, statusStr, baselinedAtStr, createdAtStr, updatedAtStr)
}

func (r *SQLiteBudgetRepo) scanRevisionRow(rows *sql.Rows) (*domain.BudgetRevision, error) {
	var rev domain.BudgetRevision
	var statusStr string
	var baselinedAtStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := rows.Scan(
		&rev.ID, &rev.ControlAccountID, &rev.RevisionNumber, &statusStr, &rev.Comments,
		&rev.SubmittedBy, &rev.ApprovedBy, &baselinedAtStr, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning budget revision row: %w", err)
	}
	return r.populateRevision(&rev, statusStr, baselinedAtStr, createdAtStr, updatedAtStr)
}

func (r *SQLiteBudgetRepo) populateRevision(
	rev *domain.BudgetRevision,
	statusStr string,
	baselinedAtStr sql.NullString,
	createdAtStr, updatedAtStr string,
) (*domain.BudgetRevision, error) {
	rev.Status = domain.RevisionStatus(statusStr)
	rev.BaselinedAt = parseNullableTime(baselinedAtStr, time.RFC3339)

	var err error
	if rev.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rev.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return rev, nil
}
