package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// evmRecordColumns is the canonical SELECT column list for evm_records.
const evmRecordColumns = `id, control_account_id, data_date, pv, ev, ac, bac, eac, etc,
		forecast_method, status, is_baseline, is_approved, created_at`

// SQLiteEVMRecordRepo implements EVMRecordRepo using a SQLite database.
type SQLiteEVMRecordRepo struct {
	db db.DBTX
}

// NewSQLiteEVMRecordRepo creates a new SQLiteEVMRecordRepo.
func NewSQLiteEVMRecordRepo(db db.DBTX) *SQLiteEVMRecordRepo {
	return &SQLiteEVMRecordRepo{db: db}
}

func (r *SQLiteEVMRecordRepo) Create(ctx context.Context, rec *domain.EVMRecord) error {
	query := `INSERT INTO evm_records (id, control_account_id, data_date, pv, ev, ac, bac, eac, etc,
		forecast_method, status, is_baseline, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.ControlAccountID,
		rec.DataDate.Format(dateLayout),
		rec.PV.String(),
		rec.EV.String(),
		rec.AC.String(),
		rec.BAC.String(),
		rec.EAC.String(),
		rec.ETC.String(),
		string(rec.ForecastMethod),
		string(rec.Status),
		boolToInt(rec.IsBaseline),
		boolToInt(rec.IsApproved),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting EVM record: %w", err)
	}
	return nil
}

func (r *SQLiteEVMRecordRepo) GetByAccountAndDate(ctx context.Context, accountID string, dataDate time.Time) (*domain.EVMRecord, error) {
	query := `SELECT ` + evmRecordColumns + ` FROM evm_records
		WHERE control_account_id = ? AND data_date = ?`
	row := r.db.QueryRowContext(ctx, query, accountID, dataDate.Format(dateLayout))
	return r.scanRecord(row)
}

func (r *SQLiteEVMRecordRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.EVMRecord, error) {
	query := `SELECT ` + evmRecordColumns + ` FROM evm_records
		WHERE control_account_id = ? ORDER BY data_date`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing EVM records: %w", err)
	}
	defer rows.Close()

	var out []*domain.EVMRecord
	for rows.Next() {
		rec, err := r.scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating EVM records: %w", err)
	}
	return out, nil
}

// Replace overwrites the unapproved snapshot for the record's account and
// date. Approved snapshots are immutable and never matched.
func (r *SQLiteEVMRecordRepo) Replace(ctx context.Context, rec *domain.EVMRecord) error {
	query := `UPDATE evm_records SET pv = ?, ev = ?, ac = ?, bac = ?, eac = ?, etc = ?,
		forecast_method = ?, status = ?, is_baseline = ?
		WHERE control_account_id = ? AND data_date = ? AND is_approved = 0`
	res, err := r.db.ExecContext(ctx, query,
		rec.PV.String(),
		rec.EV.String(),
		rec.AC.String(),
		rec.BAC.String(),
		rec.EAC.String(),
		rec.ETC.String(),
		string(rec.ForecastMethod),
		string(rec.Status),
		boolToInt(rec.IsBaseline),
		rec.ControlAccountID,
		rec.DataDate.Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("replacing EVM record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking EVM record replace: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("EVM record for %s: %w", rec.DataDate.Format(dateLayout), domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteEVMRecordRepo) Approve(ctx context.Context, id string) error {
	query := `UPDATE evm_records SET is_approved = 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("approving EVM record: %w", err)
	}
	return nil
}

// scanRecord scans a single EVM record from a *sql.Row.
func (r *SQLiteEVMRecordRepo) scanRecord(row *sql.Row) (*domain.EVMRecord, error) {
	var rec domain.EVMRecord
	var dateStr, methodStr, statusStr string
	var pvStr, evStr, acStr, bacStr, eacStr, etcStr string
	var baselineInt, approvedInt int
	var createdAtStr string

	err := row.Scan(
		&rec.ID, &rec.ControlAccountID, &dateStr, &pvStr, &evStr, &acStr, &bacStr, &eacStr, &etcStr,
		&methodStr, &statusStr, &baselineInt, &approvedInt, &createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("EVM record: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning EVM record: %w", err)
	}
	return r.populateRecord(&rec, dateStr, methodStr, statusStr,
		pvStr, evStr, acStr, bacStr, eacStr, etcStr, baselineInt, approvedInt, createdAtStr)
}

func (r *SQLiteEVMRecordRepo) scanRecordRow(rows *sql.Rows) (*domain.EVMRecord, error) {
	var rec domain.EVMRecord
	var dateStr, methodStr, statusStr string
	var pvStr, evStr, acStr, bacStr, eacStr, etcStr string
	var baselineInt, approvedInt int
	var createdAtStr string

	err := rows.Scan(
		&rec.ID, &rec.ControlAccountID, &dateStr, &pvStr, &evStr, &acStr, &bacStr, &eacStr, &etcStr,
		&methodStr, &statusStr, &baselineInt, &approvedInt, &createdAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning EVM record row: %w", err)
	}
	return r.populateRecord(&rec, dateStr, methodStr, statusStr,
		pvStr, evStr, acStr, bacStr, eacStr, etcStr, baselineInt, approvedInt, createdAtStr)
}

func (r *SQLiteEVMRecordRepo) populateRecord(
	rec *domain.EVMRecord,
	dateStr, methodStr, statusStr string,
	pvStr, evStr, acStr, bacStr, eacStr, etcStr string,
	baselineInt, approvedInt int,
	createdAtStr string,
) (*domain.EVMRecord, error) {
	rec.ForecastMethod = domain.ForecastMethod(methodStr)
	rec.Status = domain.AccountStatus(statusStr)
	rec.IsBaseline = intToBool(baselineInt)
	rec.IsApproved = intToBool(approvedInt)

	var err error
	if rec.DataDate, err = time.Parse(dateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("parsing data date: %w", err)
	}
	if rec.PV, err = parseDecimal(pvStr); err != nil {
		return nil, fmt.Errorf("parsing PV: %w", err)
	}
	if rec.EV, err = parseDecimal(evStr); err != nil {
		return nil, fmt.Errorf("parsing EV: %w", err)
	}
	if rec.AC, err = parseDecimal(acStr); err != nil {
		return nil, fmt.Errorf("parsing AC: %w", err)
	}
	if rec.BAC, err = parseDecimal(bacStr); err != nil {
		return nil, fmt.Errorf("parsing BAC: %w", err)
	}
	if rec.EAC, err = parseDecimal(eacStr); err != nil {
		return nil, fmt.Errorf("parsing EAC: %w", err)
	}
	if rec.ETC, err = parseDecimal(etcStr); err != nil {
		return nil, fmt.Errorf("parsing ETC: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return rec, nil
}
