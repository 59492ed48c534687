package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// invoiceColumns is the canonical SELECT column list for invoices.
const invoiceColumns = `id, commitment_id, number, status, currency, period_start, period_end,
		gross_amount, tax_amount, discount_amount, net_amount, retention_amount, total_amount,
		paid_amount, created_by, reviewed_by, approved_by, created_at, updated_at`

// SQLiteInvoiceRepo implements InvoiceRepo using a SQLite database.
type SQLiteInvoiceRepo struct {
	db db.DBTX
}

// NewSQLiteInvoiceRepo creates a new SQLiteInvoiceRepo.
func NewSQLiteInvoiceRepo(db db.DBTX) *SQLiteInvoiceRepo {
	return &SQLiteInvoiceRepo{db: db}
}

func (r *SQLiteInvoiceRepo) Create(ctx context.Context, v *domain.Invoice) error {
	query := `INSERT INTO invoices (id, commitment_id, number, status, currency, period_start, period_end,
		gross_amount, tax_amount, discount_amount, net_amount, retention_amount, total_amount,
		paid_amount, created_by, reviewed_by, approved_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.CommitmentID,
		v.Number,
		string(v.Status),
		v.Currency,
		v.PeriodStart.Format(dateLayout),
		v.PeriodEnd.Format(dateLayout),
		v.GrossAmount.String(),
		v.TaxAmount.String(),
		v.DiscountAmount.String(),
		v.NetAmount.String(),
		v.RetentionAmount.String(),
		v.TotalAmount.String(),
		v.PaidAmount.String(),
		v.CreatedBy,
		v.ReviewedBy,
		v.ApprovedBy,
		v.CreatedAt.Format(time.RFC3339),
		v.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}
	return nil
}

func (r *SQLiteInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanInvoice(row)
}

func (r *SQLiteInvoiceRepo) ListByCommitment(ctx context.Context, commitmentID string) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE commitment_id = ? ORDER BY period_start`
	rows, err := r.db.QueryContext(ctx, query, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("listing invoices by commitment: %w", err)
	}
	defer rows.Close()

	var out []*domain.Invoice
	for rows.Next() {
		inv, err := r.scanInvoiceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}
	return out, nil
}

func (r *SQLiteInvoiceRepo) Update(ctx context.Context, v *domain.Invoice) error {
	query := `UPDATE invoices SET status = ?, gross_amount = ?, tax_amount = ?, discount_amount = ?,
		net_amount = ?, retention_amount = ?, total_amount = ?, paid_amount = ?,
		reviewed_by = ?, approved_by = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		string(v.Status),
		v.GrossAmount.String(),
		v.TaxAmount.String(),
		v.DiscountAmount.String(),
		v.NetAmount.String(),
		v.RetentionAmount.String(),
		v.TotalAmount.String(),
		v.PaidAmount.String(),
		v.ReviewedBy,
		v.ApprovedBy,
		v.UpdatedAt.Format(time.RFC3339),
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}
	return nil
}

func (r *SQLiteInvoiceRepo) CreateItem(ctx context.Context, i *domain.InvoiceItem) error {
	query := `INSERT INTO invoice_items (id, invoice_id, commitment_item_id, budget_item_id,
		description, quantity, unit_price, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		i.ID, i.InvoiceID, i.CommitmentItemID, i.BudgetItemID, i.Description,
		i.Quantity.String(), i.UnitPrice.String(), i.Amount.String(),
		i.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting invoice item: %w", err)
	}
	return nil
}

func (r *SQLiteInvoiceRepo) ListItems(ctx context.Context, invoiceID string) ([]*domain.InvoiceItem, error) {
	query := `SELECT id, invoice_id, commitment_item_id, budget_item_id, description,
		quantity, unit_price, amount, created_at FROM invoice_items
		WHERE invoice_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoice items: %w", err)
	}
	defer rows.Close()

	var items []*domain.InvoiceItem
	for rows.Next() {
		var i domain.InvoiceItem
		var qtyStr, priceStr, amtStr, createdAtStr string
		if err := rows.Scan(&i.ID, &i.InvoiceID, &i.CommitmentItemID, &i.BudgetItemID,
			&i.Description, &qtyStr, &priceStr, &amtStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning invoice item: %w", err)
		}
		if i.Quantity, err = parseDecimal(qtyStr); err != nil {
			return nil, fmt.Errorf("parsing item quantity: %w", err)
		}
		if i.UnitPrice, err = parseDecimal(priceStr); err != nil {
			return nil, fmt.Errorf("parsing item unit price: %w", err)
		}
		if i.Amount, err = parseDecimal(amtStr); err != nil {
			return nil, fmt.Errorf("parsing item amount: %w", err)
		}
		if i.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing item created_at: %w", err)
		}
		items = append(items, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice items: %w", err)
	}
	return items, nil
}

func (r *SQLiteInvoiceRepo) CreatePosting(ctx context.Context, p *domain.ActualPosting) error {
	query := `INSERT INTO actual_postings (id, cost_node_id, amount, currency, description,
		posted_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.CostNodeID, p.Amount.String(), p.Currency, p.Description,
		p.PostedAt.Format(dateLayout), p.CreatedBy,
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting actual posting: %w", err)
	}
	return nil
}

func (r *SQLiteInvoiceRepo) ListPostingsByNode(ctx context.Context, nodeID string) ([]*domain.ActualPosting, error) {
	query := `SELECT id, cost_node_id, amount, currency, description, posted_at, created_by, created_at
		FROM actual_postings WHERE cost_node_id = ? ORDER BY posted_at`
	rows, err := r.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing actual postings: %w", err)
	}
	defer rows.Close()

	var postings []*domain.ActualPosting
	for rows.Next() {
		var p domain.ActualPosting
		var amtStr, postedAtStr, createdAtStr string
		if err := rows.Scan(&p.ID, &p.CostNodeID, &amtStr, &p.Currency, &p.Description,
			&postedAtStr, &p.CreatedBy, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning actual posting: %w", err)
		}
		if p.Amount, err = parseDecimal(amtStr); err != nil {
			return nil, fmt.Errorf("parsing posting amount: %w", err)
		}
		if p.PostedAt, err = time.Parse(dateLayout, postedAtStr); err != nil {
			return nil, fmt.Errorf("parsing posting posted_at: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing posting created_at: %w", err)
		}
		postings = append(postings, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actual postings: %w", err)
	}
	return postings, nil
}

// scanInvoice scans a single invoice from a *sql.Row.
func (r *SQLiteInvoiceRepo) scanInvoice(row *sql.Row) (*domain.Invoice, error) {
	var v domain.Invoice
	var statusStr, startStr, endStr string
	var grossStr, taxStr, discStr, netStr, retStr, totalStr, paidStr string
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&v.ID, &v.CommitmentID, &v.Number, &statusStr, &v.Currency, &startStr, &endStr,
		&grossStr, &taxStr, &discStr, &netStr, &retStr, &totalStr,
		&paidStr, &v.CreatedBy, &v.ReviewedBy, &v.ApprovedBy, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invoice: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}
	return r.populateInvoice(&v, statusStr, startStr, endStr,
		grossStr, taxStr, discStr, netStr, retStr, totalStr, paidStr, createdAtStr, updatedAtStr)
}

func (r *SQLiteInvoiceRepo) scanInvoiceRow(rows *sql.Rows) (*domain.Invoice, error) {
	var v domain.Invoice
	var statusStr, startStr, endStr string
	var grossStr, taxStr, discStr, netStr, retStr, totalStr, paidStr string
	var createdAtStr, updatedAtStr string

	err := rows.Scan(
		&v.ID, &v.CommitmentID, &v.Number, &statusStr, &v.Currency, &startStr, &endStr,
		&grossStr, &taxStr, &discStr, &netStr, &retStr, &totalStr,
		&paidStr, &v.CreatedBy, &v.ReviewedBy, &v.ApprovedBy, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning invoice row: %w", err)
	}
	return r.populateInvoice(&v, statusStr, startStr, endStr,
		grossStr, taxStr, discStr, netStr, retStr, totalStr, paidStr, createdAtStr, updatedAtStr)
}

// populateInvoice fills in parsed fields on an Invoice after scanning raw strings.
func (r *SQLiteInvoiceRepo) populateInvoice(
	v *domain.Invoice,
	statusStr, startStr, endStr string,
	grossStr, taxStr, discStr, netStr, retStr, totalStr, paidStr string,
	createdAtStr, updatedAtStr string,
) (*domain.Invoice, error) {
	v.Status = domain.InvoiceStatus(statusStr)

	var err error
	if v.PeriodStart, err = time.Parse(dateLayout, startStr); err != nil {
		return nil, fmt.Errorf("parsing period start: %w", err)
	}
	if v.PeriodEnd, err = time.Parse(dateLayout, endStr); err != nil {
		return nil, fmt.Errorf("parsing period end: %w", err)
	}
	if v.GrossAmount, err = parseDecimal(grossStr); err != nil {
		return nil, fmt.Errorf("parsing gross amount: %w", err)
	}
	if v.TaxAmount, err = parseDecimal(taxStr); err != nil {
		return nil, fmt.Errorf("parsing tax amount: %w", err)
	}
	if v.DiscountAmount, err = parseDecimal(discStr); err != nil {
		return nil, fmt.Errorf("parsing discount amount: %w", err)
	}
	if v.NetAmount, err = parseDecimal(netStr); err != nil {
		return nil, fmt.Errorf("parsing net amount: %w", err)
	}
	if v.RetentionAmount, err = parseDecimal(retStr); err != nil {
		return nil, fmt.Errorf("parsing retention amount: %w", err)
	}
	if v.TotalAmount, err = parseDecimal(totalStr); err != nil {
		return nil, fmt.Errorf("parsing total amount: %w", err)
	}
	if v.PaidAmount, err = parseDecimal(paidStr); err != nil {
		return nil, fmt.Errorf("parsing paid amount: %w", err)
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if v.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return v, nil
}
