package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Monetary amounts are stored as TEXT holding exact decimal strings;
// arithmetic happens in Go via shopspring/decimal, never in SQL.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cost_nodes (
		id               TEXT PRIMARY KEY,
		project_id       TEXT NOT NULL,
		code             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		parent_id        TEXT REFERENCES cost_nodes(id),
		level            INTEGER NOT NULL DEFAULT 0,
		is_leaf          INTEGER NOT NULL DEFAULT 1,
		currency         TEXT NOT NULL,
		original_budget  TEXT NOT NULL DEFAULT '0',
		approved_changes TEXT NOT NULL DEFAULT '0',
		committed_cost   TEXT NOT NULL DEFAULT '0',
		actual_cost      TEXT NOT NULL DEFAULT '0',
		forecast_cost    TEXT NOT NULL DEFAULT '0',
		row_version      INTEGER NOT NULL DEFAULT 1,
		deleted_at       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		UNIQUE(project_id, code)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cost_nodes_parent ON cost_nodes(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cost_nodes_project ON cost_nodes(project_id)`,

	`CREATE TABLE IF NOT EXISTS budget_changes (
		id           TEXT PRIMARY KEY,
		cost_node_id TEXT NOT NULL REFERENCES cost_nodes(id),
		amount       TEXT NOT NULL,
		reason       TEXT NOT NULL,
		created_by   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS control_accounts (
		id                  TEXT PRIMARY KEY,
		project_id          TEXT NOT NULL,
		cost_node_id        TEXT NOT NULL REFERENCES cost_nodes(id),
		code                TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		bac                 TEXT NOT NULL DEFAULT '0',
		contingency_reserve TEXT NOT NULL DEFAULT '0',
		management_reserve  TEXT NOT NULL DEFAULT '0',
		measurement_method  TEXT NOT NULL
		                    CHECK(measurement_method IN ('percent_complete','milestone','level_of_effort')),
		status              TEXT NOT NULL DEFAULT 'draft'
		                    CHECK(status IN ('draft','active','closed')),
		percent_complete    TEXT NOT NULL DEFAULT '0',
		baseline_date       TEXT,
		cam_user_id         TEXT NOT NULL DEFAULT '',
		currency            TEXT NOT NULL,
		row_version         INTEGER NOT NULL DEFAULT 1,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		UNIQUE(project_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS work_package_allocations (
		id                 TEXT PRIMARY KEY,
		control_account_id TEXT NOT NULL REFERENCES control_accounts(id),
		work_package_id    TEXT NOT NULL,
		allocated_amount   TEXT NOT NULL DEFAULT '0',
		invoiced_amount    TEXT NOT NULL DEFAULT '0',
		progress_pct       TEXT NOT NULL DEFAULT '0',
		created_at         TEXT NOT NULL,
		UNIQUE(control_account_id, work_package_id)
	)`,

	`CREATE TABLE IF NOT EXISTS wbs_cbs_mappings (
		id              TEXT PRIMARY KEY,
		work_package_id TEXT NOT NULL,
		cost_node_id    TEXT NOT NULL REFERENCES cost_nodes(id),
		percent         TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		UNIQUE(work_package_id, cost_node_id)
	)`,

	`CREATE TABLE IF NOT EXISTS budget_revisions (
		id                 TEXT PRIMARY KEY,
		control_account_id TEXT NOT NULL REFERENCES control_accounts(id),
		revision_number    INTEGER NOT NULL,
		status             TEXT NOT NULL DEFAULT 'draft'
		                   CHECK(status IN ('draft','submitted','approved','baselined','archived')),
		comments           TEXT NOT NULL DEFAULT '',
		submitted_by       TEXT NOT NULL DEFAULT '',
		approved_by        TEXT NOT NULL DEFAULT '',
		baselined_at       TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		UNIQUE(control_account_id, revision_number)
	)`,

	`CREATE TABLE IF NOT EXISTS time_phased_budgets (
		id                       TEXT PRIMARY KEY,
		control_account_id       TEXT NOT NULL REFERENCES control_accounts(id),
		revision_id              TEXT NOT NULL REFERENCES budget_revisions(id),
		period_start             TEXT NOT NULL,
		period_end               TEXT NOT NULL,
		planned_value            TEXT NOT NULL DEFAULT '0',
		cumulative_planned_value TEXT NOT NULL DEFAULT '0',
		labor_cost               TEXT NOT NULL DEFAULT '0',
		material_cost            TEXT NOT NULL DEFAULT '0',
		equipment_cost           TEXT NOT NULL DEFAULT '0',
		subcontract_cost         TEXT NOT NULL DEFAULT '0',
		other_cost               TEXT NOT NULL DEFAULT '0',
		is_baseline              INTEGER NOT NULL DEFAULT 0,
		created_at               TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tpb_revision ON time_phased_budgets(revision_id)`,

	`CREATE TABLE IF NOT EXISTS commitments (
		id                   TEXT PRIMARY KEY,
		project_id           TEXT NOT NULL,
		control_account_id   TEXT NOT NULL REFERENCES control_accounts(id),
		code                 TEXT NOT NULL,
		vendor_name          TEXT NOT NULL DEFAULT '',
		description          TEXT NOT NULL DEFAULT '',
		status               TEXT NOT NULL DEFAULT 'draft'
		                     CHECK(status IN ('draft','approved','active','closed')),
		currency             TEXT NOT NULL,
		original_amount      TEXT NOT NULL DEFAULT '0',
		revised_amount       TEXT NOT NULL DEFAULT '0',
		committed_amount     TEXT NOT NULL DEFAULT '0',
		invoiced_amount      TEXT NOT NULL DEFAULT '0',
		paid_amount          TEXT NOT NULL DEFAULT '0',
		retention_percentage TEXT NOT NULL DEFAULT '0',
		retention_amount     TEXT NOT NULL DEFAULT '0',
		created_by           TEXT NOT NULL DEFAULT '',
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL,
		UNIQUE(project_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS commitment_items (
		id             TEXT PRIMARY KEY,
		commitment_id  TEXT NOT NULL REFERENCES commitments(id),
		budget_item_id TEXT NOT NULL REFERENCES cost_nodes(id),
		description    TEXT NOT NULL DEFAULT '',
		quantity       TEXT NOT NULL DEFAULT '0',
		unit_price     TEXT NOT NULL DEFAULT '0',
		discount_pct   TEXT NOT NULL DEFAULT '0',
		tax_pct        TEXT NOT NULL DEFAULT '0',
		created_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS commitment_revisions (
		id              TEXT PRIMARY KEY,
		commitment_id   TEXT NOT NULL REFERENCES commitments(id),
		revision_number INTEGER NOT NULL,
		previous_amount TEXT NOT NULL,
		revised_amount  TEXT NOT NULL,
		reason          TEXT NOT NULL DEFAULT '',
		approved_by     TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		UNIQUE(commitment_id, revision_number)
	)`,

	`CREATE TABLE IF NOT EXISTS commitment_work_packages (
		id                  TEXT PRIMARY KEY,
		commitment_id       TEXT NOT NULL REFERENCES commitments(id),
		work_package_id     TEXT NOT NULL,
		allocated_amount    TEXT NOT NULL DEFAULT '0',
		invoiced_amount     TEXT NOT NULL DEFAULT '0',
		progress_percentage TEXT NOT NULL DEFAULT '0',
		created_at          TEXT NOT NULL,
		UNIQUE(commitment_id, work_package_id)
	)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id               TEXT PRIMARY KEY,
		commitment_id    TEXT NOT NULL REFERENCES commitments(id),
		number           TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'submitted'
		                 CHECK(status IN ('submitted','reviewed','approved','rejected','paid')),
		currency         TEXT NOT NULL,
		period_start     TEXT NOT NULL,
		period_end       TEXT NOT NULL,
		gross_amount     TEXT NOT NULL DEFAULT '0',
		tax_amount       TEXT NOT NULL DEFAULT '0',
		discount_amount  TEXT NOT NULL DEFAULT '0',
		net_amount       TEXT NOT NULL DEFAULT '0',
		retention_amount TEXT NOT NULL DEFAULT '0',
		total_amount     TEXT NOT NULL DEFAULT '0',
		paid_amount      TEXT NOT NULL DEFAULT '0',
		created_by       TEXT NOT NULL DEFAULT '',
		reviewed_by      TEXT NOT NULL DEFAULT '',
		approved_by      TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		UNIQUE(commitment_id, number)
	)`,

	`CREATE TABLE IF NOT EXISTS invoice_items (
		id                 TEXT PRIMARY KEY,
		invoice_id         TEXT NOT NULL REFERENCES invoices(id),
		commitment_item_id TEXT NOT NULL REFERENCES commitment_items(id),
		budget_item_id     TEXT NOT NULL REFERENCES cost_nodes(id),
		description        TEXT NOT NULL DEFAULT '',
		quantity           TEXT NOT NULL DEFAULT '0',
		unit_price         TEXT NOT NULL DEFAULT '0',
		amount             TEXT NOT NULL DEFAULT '0',
		created_at         TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS actual_postings (
		id           TEXT PRIMARY KEY,
		cost_node_id TEXT NOT NULL REFERENCES cost_nodes(id),
		amount       TEXT NOT NULL,
		currency     TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		posted_at    TEXT NOT NULL,
		created_by   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS evm_records (
		id                 TEXT PRIMARY KEY,
		control_account_id TEXT NOT NULL REFERENCES control_accounts(id),
		data_date          TEXT NOT NULL,
		pv                 TEXT NOT NULL DEFAULT '0',
		ev                 TEXT NOT NULL DEFAULT '0',
		ac                 TEXT NOT NULL DEFAULT '0',
		bac                TEXT NOT NULL DEFAULT '0',
		eac                TEXT NOT NULL DEFAULT '0',
		etc                TEXT NOT NULL DEFAULT '0',
		forecast_method    TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'active',
		is_baseline        INTEGER NOT NULL DEFAULT 0,
		is_approved        INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		UNIQUE(control_account_id, data_date)
	)`,

	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id            TEXT PRIMARY KEY,
		currency_from TEXT NOT NULL,
		currency_to   TEXT NOT NULL,
		rate_date     TEXT NOT NULL,
		rate          TEXT NOT NULL,
		is_official   INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		UNIQUE(currency_from, currency_to, rate_date)
	)`,
}
