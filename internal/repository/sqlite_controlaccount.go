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

// controlAccountColumns is the canonical SELECT column list for control_accounts.
const controlAccountColumns = `id, project_id, cost_node_id, code, description,
		bac, contingency_reserve, management_reserve, measurement_method, status,
		percent_complete, baseline_date, cam_user_id, currency, row_version, created_at, updated_at`

// SQLiteControlAccountRepo implements ControlAccountRepo using a SQLite database.
type SQLiteControlAccountRepo struct {
	db db.DBTX
}

// NewSQLiteControlAccountRepo creates a new SQLiteControlAccountRepo.
func NewSQLiteControlAccountRepo(db db.DBTX) *SQLiteControlAccountRepo {
	return &SQLiteControlAccountRepo{db: db}
}

func (r *SQLiteControlAccountRepo) Create(ctx context.Context, a *domain.ControlAccount) error {
	query := `INSERT INTO control_accounts (id, project_id, cost_node_id, code, description,
		bac, contingency_reserve, management_reserve, measurement_method, status,
		percent_complete, baseline_date, cam_user_id, currency, row_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.ProjectID,
		a.CostNodeID,
		a.Code,
		a.Description,
		a.BAC.String(),
		a.ContingencyReserve.String(),
		a.ManagementReserve.String(),
		string(a.MeasurementMethod),
		string(a.Status),
		a.PercentComplete.String(),
		nullableTimeToString(a.BaselineDate, dateLayout),
		a.CAMUserID,
		a.Currency,
		a.RowVersion,
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting control account: %w", err)
	}
	return nil
}

func (r *SQLiteControlAccountRepo) GetByID(ctx context.Context, id string) (*domain.ControlAccount, error) {
	query := `SELECT ` + controlAccountColumns + ` FROM control_accounts WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanAccount(row)
}

func (r *SQLiteControlAccountRepo) GetByCode(ctx context.Context, projectID, code string) (*domain.ControlAccount, error) {
	query := `SELECT ` + controlAccountColumns + ` FROM control_accounts WHERE project_id = ? AND code = ?`
	row := r.db.QueryRowContext(ctx, query, projectID, code)
	return r.scanAccount(row)
}

func (r *SQLiteControlAccountRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error) {
	query := `SELECT ` + controlAccountColumns + ` FROM control_accounts WHERE project_id = ? ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing control accounts by project: %w", err)
	}
	defer rows.Close()
	return r.scanAccounts(rows)
}

func (r *SQLiteControlAccountRepo) ListActiveByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error) {
	query := `SELECT ` + controlAccountColumns + ` FROM control_accounts
		WHERE project_id = ? AND status = 'active' ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing active control accounts: %w", err)
	}
	defer rows.Close()
	return r.scanAccounts(rows)
}

func (r *SQLiteControlAccountRepo) Update(ctx context.Context, a *domain.ControlAccount) error {
	query := `UPDATE control_accounts SET code = ?, description = ?, bac = ?, contingency_reserve = ?,
		management_reserve = ?, measurement_method = ?, status = ?, percent_complete = ?,
		baseline_date = ?, cam_user_id = ?, row_version = row_version + 1, updated_at = ?
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.Code,
		a.Description,
		a.BAC.String(),
		a.ContingencyReserve.String(),
		a.ManagementReserve.String(),
		string(a.MeasurementMethod),
		string(a.Status),
		a.PercentComplete.String(),
		nullableTimeToString(a.BaselineDate, dateLayout),
		a.CAMUserID,
		a.UpdatedAt.Format(time.RFC3339),
		a.ID,
		a.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating control account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking control account update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("control account %s at version %d: %w", a.Code, a.RowVersion, domain.ErrConcurrencyConflict)
	}
	a.RowVersion++
	return nil
}

func (r *SQLiteControlAccountRepo) CreateAllocation(ctx context.Context, w *domain.WorkPackageAllocation) error {
	query := `INSERT INTO work_package_allocations (id, control_account_id, work_package_id,
		allocated_amount, invoiced_amount, progress_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.ControlAccountID, w.WorkPackageID,
		w.AllocatedAmount.String(), w.InvoicedAmount.String(), w.ProgressPct.String(),
		w.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting work package allocation: %w", err)
	}
	return nil
}

func (r *SQLiteControlAccountRepo) ListAllocations(ctx context.Context, accountID string) ([]*domain.WorkPackageAllocation, error) {
	query := `SELECT id, control_account_id, work_package_id, allocated_amount, invoiced_amount, progress_pct, created_at
		FROM work_package_allocations WHERE control_account_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing work package allocations: %w", err)
	}
	defer rows.Close()

	var allocs []*domain.WorkPackageAllocation
	for rows.Next() {
		var w domain.WorkPackageAllocation
		var allocStr, invStr, pctStr, createdAtStr string
		if err := rows.Scan(&w.ID, &w.ControlAccountID, &w.WorkPackageID, &allocStr, &invStr, &pctStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning work package allocation: %w", err)
		}
		if w.AllocatedAmount, err = parseDecimal(allocStr); err != nil {
			return nil, fmt.Errorf("parsing allocated amount: %w", err)
		}
		if w.InvoicedAmount, err = parseDecimal(invStr); err != nil {
			return nil, fmt.Errorf("parsing invoiced amount: %w", err)
		}
		if w.ProgressPct, err = parseDecimal(pctStr); err != nil {
			return nil, fmt.Errorf("parsing progress pct: %w", err)
		}
		if w.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing allocation created_at: %w", err)
		}
		allocs = append(allocs, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work package allocations: %w", err)
	}
	return allocs, nil
}

func (r *SQLiteControlAccountRepo) UpdateAllocation(ctx context.Context, w *domain.WorkPackageAllocation) error {
	query := `UPDATE work_package_allocations SET allocated_amount = ?, invoiced_amount = ?, progress_pct = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		w.AllocatedAmount.String(), w.InvoicedAmount.String(), w.ProgressPct.String(), w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating work package allocation: %w", err)
	}
	return nil
}

// SumAllocations totals allocated amounts in Go so decimal strings never go
// through SQLite float arithmetic.
func (r *SQLiteControlAccountRepo) SumAllocations(ctx context.Context, accountID string) (decimal.Decimal, error) {
	allocs, err := r.ListAllocations(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.AllocatedAmount)
	}
	return sum, nil
}

func (r *SQLiteControlAccountRepo) CreateMapping(ctx context.Context, m *domain.WBSCBSMapping) error {
	query := `INSERT INTO wbs_cbs_mappings (id, work_package_id, cost_node_id, percent, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.WorkPackageID, m.CostNodeID, m.Percent.String(), m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting WBS/CBS mapping: %w", err)
	}
	return nil
}

func (r *SQLiteControlAccountRepo) SumMappingPercent(ctx context.Context, workPackageID string) (decimal.Decimal, error) {
	query := `SELECT percent FROM wbs_cbs_mappings WHERE work_package_id = ?`
	rows, err := r.db.QueryContext(ctx, query, workPackageID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing WBS/CBS mapping percents: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var pctStr string
		if err := rows.Scan(&pctStr); err != nil {
			return decimal.Zero, fmt.Errorf("scanning mapping percent: %w", err)
		}
		pct, err := parseDecimal(pctStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing mapping percent: %w", err)
		}
		sum = sum.Add(pct)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterating mapping percents: %w", err)
	}
	return sum, nil
}

// scanAccount scans a single control account from a *sql.Row.
func (r *SQLiteControlAccountRepo) scanAccount(row *sql.Row) (*domain.ControlAccount, error) {
	var a domain.ControlAccount
	var methodStr, statusStr string
	var bacStr, crStr, mrStr, pctStr string
	var baselineDateStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&a.ID, &a.ProjectID, &a.CostNodeID, &a.Code, &a.Description,
		&bacStr, &crStr, &mrStr, &methodStr, &statusStr,
		&pctStr, &baselineDateStr, &a.CAMUserID, &a.Currency, &a.RowVersion, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("control account: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning control account: %w", err)
	}
	return r.populateAccount(&a, methodStr, statusStr, bacStr, crStr, mrStr, pctStr,
		baselineDateStr, createdAtStr, updatedAtStr)
}

// scanAccounts scans multiple control accounts from *sql.Rows.
func (r *SQLiteControlAccountRepo) scanAccounts(rows *sql.Rows) ([]*domain.ControlAccount, error) {
	var accounts []*domain.ControlAccount
	for rows.Next() {
		var a domain.ControlAccount
		var methodStr, statusStr string
		var bacStr, crStr, mrStr, pctStr string
		var baselineDateStr sql.NullString
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&a.ID, &a.ProjectID, &a.CostNodeID, &a.Code, &a.Description,
			&bacStr, &crStr, &mrStr, &methodStr, &statusStr,
			&pctStr, &baselineDateStr, &a.CAMUserID, &a.Currency, &a.RowVersion, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning control account row: %w", err)
		}
		account, err := r.populateAccount(&a, methodStr, statusStr, bacStr, crStr, mrStr, pctStr,
			baselineDateStr, createdAtStr, updatedAtStr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control accounts: %w", err)
	}
	return accounts, nil
}

// populateAccount fills in parsed fields on a ControlAccount after scanning raw strings.
func (r *SQLiteControlAccountRepo) populateAccount(
	a *domain.ControlAccount,
	methodStr, statusStr string,
	bacStr, crStr, mrStr, pctStr string,
	baselineDateStr sql.NullString,
	createdAtStr, updatedAtStr string,
) (*domain.ControlAccount, error) {
	a.MeasurementMethod = domain.MeasurementMethod(methodStr)
	a.Status = domain.AccountStatus(statusStr)
	a.BaselineDate = parseNullableTime(baselineDateStr, dateLayout)

	var err error
	if a.BAC, err = parseDecimal(bacStr); err != nil {
		return nil, fmt.Errorf("parsing BAC: %w", err)
	}
	if a.ContingencyReserve, err = parseDecimal(crStr); err != nil {
		return nil, fmt.Errorf("parsing contingency reserve: %w", err)
	}
	if a.ManagementReserve, err = parseDecimal(mrStr); err != nil {
		return nil, fmt.Errorf("parsing management reserve: %w", err)
	}
	if a.PercentComplete, err = parseDecimal(pctStr); err != nil {
		return nil, fmt.Errorf("parsing percent complete: %w", err)
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return a, nil
}
