package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

type CostNodeRepo interface {
	Create(ctx context.Context, n *domain.CostNode) error
	GetByID(ctx context.Context, id string) (*domain.CostNode, error)
	GetByCode(ctx context.Context, projectID, code string) (*domain.CostNode, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.CostNode, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.CostNode, error)
	// Update applies an optimistic write: it matches the node's loaded
	// RowVersion and bumps it, failing with ErrConcurrencyConflict on a miss.
	Update(ctx context.Context, n *domain.CostNode) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	AddBudgetChange(ctx context.Context, c *domain.BudgetChange) error
	ListBudgetChanges(ctx context.Context, nodeID string) ([]*domain.BudgetChange, error)
}

type ControlAccountRepo interface {
	Create(ctx context.Context, a *domain.ControlAccount) error
	GetByID(ctx context.Context, id string) (*domain.ControlAccount, error)
	GetByCode(ctx context.Context, projectID, code string) (*domain.ControlAccount, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error)
	ListActiveByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error)
	// Update is optimistic, like CostNodeRepo.Update.
	Update(ctx context.Context, a *domain.ControlAccount) error
	CreateAllocation(ctx context.Context, w *domain.WorkPackageAllocation) error
	ListAllocations(ctx context.Context, accountID string) ([]*domain.WorkPackageAllocation, error)
	UpdateAllocation(ctx context.Context, w *domain.WorkPackageAllocation) error
	SumAllocations(ctx context.Context, accountID string) (decimal.Decimal, error)
	CreateMapping(ctx context.Context, m *domain.WBSCBSMapping) error
	SumMappingPercent(ctx context.Context, workPackageID string) (decimal.Decimal, error)
}

type BudgetRepo interface {
	CreateRevision(ctx context.Context, r *domain.BudgetRevision) error
	GetRevision(ctx context.Context, id string) (*domain.BudgetRevision, error)
	GetBaselined(ctx context.Context, accountID string) (*domain.BudgetRevision, error)
	ListRevisions(ctx context.Context, accountID string) ([]*domain.BudgetRevision, error)
	NextRevisionNumber(ctx context.Context, accountID string) (int, error)
	UpdateRevision(ctx context.Context, r *domain.BudgetRevision) error
	CreateTimePhased(ctx context.Context, row *domain.TimePhasedBudget) error
	ListTimePhased(ctx context.Context, revisionID string) ([]*domain.TimePhasedBudget, error)
	SetBaselineFlag(ctx context.Context, revisionID string, baseline bool) error
	// CumulativePVAt returns the cumulative planned value of the latest
	// period starting on or before asOf within the revision.
	CumulativePVAt(ctx context.Context, revisionID string, asOf time.Time) (decimal.Decimal, error)
}

type CommitmentRepo interface {
	Create(ctx context.Context, c *domain.Commitment) error
	GetByID(ctx context.Context, id string) (*domain.Commitment, error)
	GetByCode(ctx context.Context, projectID, code string) (*domain.Commitment, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Commitment, error)
	ListByControlAccount(ctx context.Context, accountID string) ([]*domain.Commitment, error)
	Update(ctx context.Context, c *domain.Commitment) error
	CreateItem(ctx context.Context, i *domain.CommitmentItem) error
	GetItem(ctx context.Context, id string) (*domain.CommitmentItem, error)
	ListItems(ctx context.Context, commitmentID string) ([]*domain.CommitmentItem, error)
	CreateRevision(ctx context.Context, r *domain.CommitmentRevision) error
	ListRevisions(ctx context.Context, commitmentID string) ([]*domain.CommitmentRevision, error)
	CreateWorkPackage(ctx context.Context, w *domain.CommitmentWorkPackage) error
	ListWorkPackages(ctx context.Context, commitmentID string) ([]*domain.CommitmentWorkPackage, error)
	UpdateWorkPackage(ctx context.Context, w *domain.CommitmentWorkPackage) error
}

type InvoiceRepo interface {
	Create(ctx context.Context, v *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListByCommitment(ctx context.Context, commitmentID string) ([]*domain.Invoice, error)
	Update(ctx context.Context, v *domain.Invoice) error
	CreateItem(ctx context.Context, i *domain.InvoiceItem) error
	ListItems(ctx context.Context, invoiceID string) ([]*domain.InvoiceItem, error)
	CreatePosting(ctx context.Context, p *domain.ActualPosting) error
	ListPostingsByNode(ctx context.Context, nodeID string) ([]*domain.ActualPosting, error)
}

type EVMRecordRepo interface {
	Create(ctx context.Context, r *domain.EVMRecord) error
	GetByAccountAndDate(ctx context.Context, accountID string, dataDate time.Time) (*domain.EVMRecord, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.EVMRecord, error)
	// Replace overwrites an unapproved snapshot for the same account and date.
	Replace(ctx context.Context, r *domain.EVMRecord) error
	Approve(ctx context.Context, id string) error
}

type ExchangeRateRepo interface {
	Create(ctx context.Context, r *domain.ExchangeRate) error
	Nearest(ctx context.Context, from, to string, asOf, notBefore time.Time) (*domain.ExchangeRate, error)
}
