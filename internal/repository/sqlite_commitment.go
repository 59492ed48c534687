package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// commitmentColumns is the canonical SELECT column list for commitments.
const commitmentColumns = `id, project_id, control_account_id, code, vendor_name, description,
		status, currency, original_amount, revised_amount, committed_amount, invoiced_amount,
		paid_amount, retention_percentage, retention_amount, created_by, created_at, updated_at`

// SQLiteCommitmentRepo implements CommitmentRepo using a SQLite database.
type SQLiteCommitmentRepo struct {
	db db.DBTX
}

// NewSQLiteCommitmentRepo creates a new SQLiteCommitmentRepo.
func NewSQLiteCommitmentRepo(db db.DBTX) *SQLiteCommitmentRepo {
	return &SQLiteCommitmentRepo{db: db}
}

func (r *SQLiteCommitmentRepo) Create(ctx context.Context, c *domain.Commitment) error {
	query := `INSERT INTO commitments (id, project_id, control_account_id, code, vendor_name, description,
		status, currency, original_amount, revised_amount, committed_amount, invoiced_amount,
		paid_amount, retention_percentage, retention_amount, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.ProjectID,
		c.ControlAccountID,
		c.Code,
		c.VendorName,
		c.Description,
		string(c.Status),
		c.Currency,
		c.OriginalAmount.String(),
		c.RevisedAmount.String(),
		c.CommittedAmount.String(),
		c.InvoicedAmount.String(),
		c.PaidAmount.String(),
		c.RetentionPercentage.String(),
		c.RetentionAmount.String(),
		c.CreatedBy,
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting commitment: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) GetByID(ctx context.Context, id string) (*domain.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanCommitment(row)
}

func (r *SQLiteCommitmentRepo) GetByCode(ctx context.Context, projectID, code string) (*domain.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE project_id = ? AND code = ?`
	row := r.db.QueryRowContext(ctx, query, projectID, code)
	return r.scanCommitment(row)
}

func (r *SQLiteCommitmentRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE project_id = ? ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing commitments by project: %w", err)
	}
	defer rows.Close()
	return r.scanCommitments(rows)
}

func (r *SQLiteCommitmentRepo) ListByControlAccount(ctx context.Context, accountID string) ([]*domain.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE control_account_id = ? ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing commitments by control account: %w", err)
	}
	defer rows.Close()
	return r.scanCommitments(rows)
}

func (r *SQLiteCommitmentRepo) Update(ctx context.Context, c *domain.Commitment) error {
	query := `UPDATE commitments SET vendor_name = ?, description = ?, status = ?,
		original_amount = ?, revised_amount = ?, committed_amount = ?, invoiced_amount = ?,
		paid_amount = ?, retention_percentage = ?, retention_amount = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		c.VendorName,
		c.Description,
		string(c.Status),
		c.OriginalAmount.String(),
		c.RevisedAmount.String(),
		c.CommittedAmount.String(),
		c.InvoicedAmount.String(),
		c.PaidAmount.String(),
		c.RetentionPercentage.String(),
		c.RetentionAmount.String(),
		c.UpdatedAt.Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating commitment: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) CreateItem(ctx context.Context, i *domain.CommitmentItem) error {
	query := `INSERT INTO commitment_items (id, commitment_id, budget_item_id, description,
		quantity, unit_price, discount_pct, tax_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		i.ID, i.CommitmentID, i.BudgetItemID, i.Description,
		i.Quantity.String(), i.UnitPrice.String(), i.DiscountPct.String(), i.TaxPct.String(),
		i.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting commitment item: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) GetItem(ctx context.Context, id string) (*domain.CommitmentItem, error) {
	query := `SELECT id, commitment_id, budget_item_id, description, quantity, unit_price,
		discount_pct, tax_pct, created_at FROM commitment_items WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var i domain.CommitmentItem
	var qtyStr, priceStr, discStr, taxStr, createdAtStr string
	err := row.Scan(&i.ID, &i.CommitmentID, &i.BudgetItemID, &i.Description,
		&qtyStr, &priceStr, &discStr, &taxStr, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("commitment item: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning commitment item: %w", err)
	}
	return r.populateItem(&i, qtyStr, priceStr, discStr, taxStr, createdAtStr)
}

func (r *SQLiteCommitmentRepo) ListItems(ctx context.Context, commitmentID string) ([]*domain.CommitmentItem, error) {
	query := `SELECT id, commitment_id, budget_item_id, description, quantity, unit_price,
		discount_pct, tax_pct, created_at FROM commitment_items WHERE commitment_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("listing commitment items: %w", err)
	}
	defer rows.Close()

	var items []*domain.CommitmentItem
	for rows.Next() {
		var i domain.CommitmentItem
		var qtyStr, priceStr, discStr, taxStr, createdAtStr string
		if err := rows.Scan(&i.ID, &i.CommitmentID, &i.BudgetItemID, &i.Description,
			&qtyStr, &priceStr, &discStr, &taxStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning commitment item row: %w", err)
		}
		item, err := r.populateItem(&i, qtyStr, priceStr, discStr, taxStr, createdAtStr)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commitment items: %w", err)
	}
	return items, nil
}

func (r *SQLiteCommitmentRepo) CreateRevision(ctx context.Context, rev *domain.CommitmentRevision) error {
	query := `INSERT INTO commitment_revisions (id, commitment_id, revision_number,
		previous_amount, revised_amount, reason, approved_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rev.ID, rev.CommitmentID, rev.RevisionNumber,
		rev.PreviousAmount.String(), rev.RevisedAmount.String(), rev.Reason, rev.ApprovedBy,
		rev.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting commitment revision: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) ListRevisions(ctx context.Context, commitmentID string) ([]*domain.CommitmentRevision, error) {
	query := `SELECT id, commitment_id, revision_number, previous_amount, revised_amount,
		reason, approved_by, created_at FROM commitment_revisions
		WHERE commitment_id = ? ORDER BY revision_number`
	rows, err := r.db.QueryContext(ctx, query, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("listing commitment revisions: %w", err)
	}
	defer rows.Close()

	var revs []*domain.CommitmentRevision
	for rows.Next() {
		var rev domain.CommitmentRevision
		var prevStr, revStr, createdAtStr string
		if err := rows.Scan(&rev.ID, &rev.CommitmentID, &rev.RevisionNumber,
			&prevStr, &revStr, &rev.Reason, &rev.ApprovedBy, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning commitment revision: %w", err)
		}
		if rev.PreviousAmount, err = parseDecimal(prevStr); err != nil {
			return nil, fmt.Errorf("parsing previous amount: %w", err)
		}
		if rev.RevisedAmount, err = parseDecimal(revStr); err != nil {
			return nil, fmt.Errorf("parsing revised amount: %w", err)
		}
		if rev.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing revision created_at: %w", err)
		}
		revs = append(revs, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commitment revisions: %w", err)
	}
	return revs, nil
}

func (r *SQLiteCommitmentRepo) CreateWorkPackage(ctx context.Context, w *domain.CommitmentWorkPackage) error {
	query := `INSERT INTO commitment_work_packages (id, commitment_id, work_package_id,
		allocated_amount, invoiced_amount, progress_percentage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.CommitmentID, w.WorkPackageID,
		w.AllocatedAmount.String(), w.InvoicedAmount.String(), w.ProgressPercentage.String(),
		w.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting commitment work package: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) ListWorkPackages(ctx context.Context, commitmentID string) ([]*domain.CommitmentWorkPackage, error) {
	query := `SELECT id, commitment_id, work_package_id, allocated_amount, invoiced_amount,
		progress_percentage, created_at FROM commitment_work_packages
		WHERE commitment_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("listing commitment work packages: %w", err)
	}
	defer rows.Close()

	var wps []*domain.CommitmentWorkPackage
	for rows.Next() {
		var w domain.CommitmentWorkPackage
		var allocStr, invStr, pctStr, createdAtStr string
		if err := rows.Scan(&w.ID, &w.CommitmentID, &w.WorkPackageID,
			&allocStr, &invStr, &pctStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning commitment work package: %w", err)
		}
		if w.AllocatedAmount, err = parseDecimal(allocStr); err != nil {
			return nil, fmt.Errorf("parsing allocated amount: %w", err)
		}
		if w.InvoicedAmount, err = parseDecimal(invStr); err != nil {
			return nil, fmt.Errorf("parsing invoiced amount: %w", err)
		}
		if w.ProgressPercentage, err = parseDecimal(pctStr); err != nil {
			return nil, fmt.Errorf("parsing progress percentage: %w", err)
		}
		if w.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing work package created_at: %w", err)
		}
		wps = append(wps, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commitment work packages: %w", err)
	}
	return wps, nil
}

func (r *SQLiteCommitmentRepo) UpdateWorkPackage(ctx context.Context, w *domain.CommitmentWorkPackage) error {
	query := `UPDATE commitment_work_packages SET allocated_amount = ?, invoiced_amount = ?,
		progress_percentage = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		w.AllocatedAmount.String(), w.InvoicedAmount.String(), w.ProgressPercentage.String(), w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating commitment work package: %w", err)
	}
	return nil
}

func (r *SQLiteCommitmentRepo) populateItem(
	i *domain.CommitmentItem,
	qtyStr, priceStr, discStr, taxStr, createdAtStr string,
) (*domain.CommitmentItem, error) {
	var err error
	if i.Quantity, err = parseDecimal(qtyStr); err != nil {
		return nil, fmt.Errorf("parsing quantity: %w", err)
	}
	if i.UnitPrice, err = parseDecimal(priceStr); err != nil {
		return nil, fmt.Errorf("parsing unit price: %w", err)
	}
	if i.DiscountPct, err = parseDecimal(discStr); err != nil {
		return nil, fmt.Errorf("parsing discount pct: %w", err)
	}
	if i.TaxPct, err = parseDecimal(taxStr); err != nil {
		return nil, fmt.Errorf("parsing tax pct: %w", err)
	}
	if i.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing item created_at: %w", err)
	}
	return i, nil
}

// scanCommitment scans a single commitment from a *sql.Row.
func (r *SQLiteCommitmentRepo) scanCommitment(row *sql.Row) (*domain.Commitment, error) {
	var c domain.Commitment
	var statusStr string
	var origStr, revStr, commStr, invStr, paidStr, retPctStr, retAmtStr string
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&c.ID, &c.ProjectID, &c.ControlAccountID, &c.Code, &c.VendorName, &c.Description,
		&statusStr, &c.Currency, &origStr, &revStr, &commStr, &invStr,
		&paidStr, &retPctStr, &retAmtStr, &c.CreatedBy, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("commitment: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning commitment: %w", err)
	}
	return r.populateCommitment(&c, statusStr, origStr, revStr, commStr, invStr, paidStr,
		retPctStr, retAmtStr, createdAtStr, updatedAtStr)
}

// scanCommitments scans multiple commitments from *sql.Rows.
func (r *SQLiteCommitmentRepo) scanCommitments(rows *sql.Rows) ([]*domain.Commitment, error) {
	var out []*domain.Commitment
	for rows.Next() {
		var c domain.Commitment
		var statusStr string
		var origStr, revStr, commStr, invStr, paidStr, retPctStr, retAmtStr string
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&c.ID, &c.ProjectID, &c.ControlAccountID, &c.Code, &c.VendorName, &c.Description,
			&statusStr, &c.Currency, &origStr, &revStr, &commStr, &invStr,
			&paidStr, &retPctStr, &retAmtStr, &c.CreatedBy, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning commitment row: %w", err)
		}
		cm, err := r.populateCommitment(&c, statusStr, origStr, revStr, commStr, invStr, paidStr,
			retPctStr, retAmtStr, createdAtStr, updatedAtStr)
		if err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commitments: %w", err)
	}
	return out, nil
}

// populateCommitment fills in parsed fields on a Commitment after scanning raw strings.
func (r *SQLiteCommitmentRepo) populateCommitment(
	c *domain.Commitment,
	statusStr string,
	origStr, revStr, commStr, invStr, paidStr, retPctStr, retAmtStr string,
	createdAtStr, updatedAtStr string,
) (*domain.Commitment, error) {
	c.Status = domain.CommitmentStatus(statusStr)

	var err error
	if c.OriginalAmount, err = parseDecimal(origStr); err != nil {
		return nil, fmt.Errorf("parsing original amount: %w", err)
	}
	if c.RevisedAmount, err = parseDecimal(revStr); err != nil {
		return nil, fmt.Errorf("parsing revised amount: %w", err)
	}
	if c.CommittedAmount, err = parseDecimal(commStr); err != nil {
		return nil, fmt.Errorf("parsing committed amount: %w", err)
	}
	if c.InvoicedAmount, err = parseDecimal(invStr); err != nil {
		return nil, fmt.Errorf("parsing invoiced amount: %w", err)
	}
	if c.PaidAmount, err = parseDecimal(paidStr); err != nil {
		return nil, fmt.Errorf("parsing paid amount: %w", err)
	}
	if c.RetentionPercentage, err = parseDecimal(retPctStr); err != nil {
		return nil, fmt.Errorf("parsing retention percentage: %w", err)
	}
	if c.RetentionAmount, err = parseDecimal(retAmtStr); err != nil {
		return nil, fmt.Errorf("parsing retention amount: %w", err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, nil
}
