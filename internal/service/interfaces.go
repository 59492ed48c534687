package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/contract"
	"github.com/cayaqui/costcontrol/internal/domain"
)

type CostTreeService interface {
	AddNode(ctx context.Context, n *domain.CostNode) error
	GetNode(ctx context.Context, id string) (*domain.CostNode, error)
	GetNodeByCode(ctx context.Context, projectID, code string) (*domain.CostNode, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.CostNode, error)
	// ApplyApprovedChange records an approved budget change against a leaf
	// node and recomputes ancestor roll-ups in the same transaction.
	ApplyApprovedChange(ctx context.Context, nodeID string, amount decimal.Decimal, reason, actor string) error
	ListBudgetChanges(ctx context.Context, nodeID string) ([]*domain.BudgetChange, error)
	// RecomputeRollups rebuilds every non-leaf figure in the subtree from its
	// leaves, converting child figures to each parent's currency at asOf.
	RecomputeRollups(ctx context.Context, rootID string, asOf time.Time) error
	SoftDeleteNode(ctx context.Context, id string) error
}

type AccountService interface {
	Create(ctx context.Context, a *domain.ControlAccount) error
	GetByID(ctx context.Context, id string) (*domain.ControlAccount, error)
	GetByCode(ctx context.Context, projectID, code string) (*domain.ControlAccount, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error)
	ListActiveByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error)
	AssignWorkPackage(ctx context.Context, accountID, workPackageID string, amount decimal.Decimal) error
	RecordProgress(ctx context.Context, accountID string, pct decimal.Decimal) error
	Activate(ctx context.Context, accountID string) error
	Close(ctx context.Context, accountID string) error
	MapWBS(ctx context.Context, workPackageID, costNodeID string, percent decimal.Decimal) error
}

type BaselineService interface {
	CreateRevision(ctx context.Context, accountID string) (*domain.BudgetRevision, error)
	GetRevision(ctx context.Context, id string) (*domain.BudgetRevision, error)
	ListRevisions(ctx context.Context, accountID string) ([]*domain.BudgetRevision, error)
	AddPeriods(ctx context.Context, revisionID string, rows []*domain.TimePhasedBudget) error
	ListPeriods(ctx context.Context, revisionID string) ([]*domain.TimePhasedBudget, error)
	Submit(ctx context.Context, revisionID, actor string) error
	Approve(ctx context.Context, revisionID, actor, comments string) error
	Reject(ctx context.Context, revisionID, comments string) error
	// SetAsBaseline atomically un-baselines the previous baselined revision
	// and baselines the given one. Requires approved status.
	SetAsBaseline(ctx context.Context, revisionID string) error
	Archive(ctx context.Context, revisionID string) error
	GetBaselined(ctx context.Context, accountID string) (*domain.BudgetRevision, error)
}

type CommitmentService interface {
	Create(ctx context.Context, c *domain.Commitment, items []*domain.CommitmentItem) error
	GetByID(ctx context.Context, id string) (*domain.Commitment, error)
	GetByCode(ctx context.Context, projectID, code string) (*domain.Commitment, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Commitment, error)
	Approve(ctx context.Context, id string) error
	// Activate opens the commitment for invoicing and posts its committed
	// cost to the charged leaf nodes, rolling up ancestors.
	Activate(ctx context.Context, id string) error
	Revise(ctx context.Context, id string, newAmount decimal.Decimal, reason, approver string) error
	ListRevisions(ctx context.Context, id string) ([]*domain.CommitmentRevision, error)
	AllocateToWorkPackage(ctx context.Context, commitmentID, workPackageID string, amount decimal.Decimal) error
	Close(ctx context.Context, id string) error
}

type ActualCostService interface {
	// RecordInvoice validates in order: commitment active, invoiced ceiling,
	// item referents. On any failure no ledger state changes.
	RecordInvoice(ctx context.Context, commitmentID string, inv *domain.Invoice, items []*domain.InvoiceItem) error
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, commitmentID string) ([]*domain.Invoice, error)
	ReviewInvoice(ctx context.Context, invoiceID, actor string) error
	// ApproveInvoice posts the invoice's actual cost to the charged leaf
	// nodes and recomputes ancestor roll-ups in the same transaction.
	ApproveInvoice(ctx context.Context, invoiceID, actor string) error
	RejectInvoice(ctx context.Context, invoiceID, actor string) error
	RecordPayment(ctx context.Context, invoiceID string, amount decimal.Decimal) error
	RecordDirectCost(ctx context.Context, p *domain.ActualPosting) error
	ListPostings(ctx context.Context, nodeID string) ([]*domain.ActualPosting, error)
}

type EVMService interface {
	// ComputeRecord evaluates and persists the earned-value snapshot for one
	// control account at asOf. An approved snapshot for the same date is
	// immutable.
	ComputeRecord(ctx context.Context, accountID string, asOf time.Time, method domain.ForecastMethod) (*domain.EVMRecord, error)
	ApproveRecord(ctx context.Context, accountID string, asOf time.Time) error
	ListRecords(ctx context.Context, accountID string) ([]*domain.EVMRecord, error)
	RollupProject(ctx context.Context, req contract.ReportRequest) (*contract.ProjectEVMSummary, error)
}

type ReportService interface {
	BuildReport(ctx context.Context, req contract.ReportRequest) (*contract.CostReport, error)
}

type RateService interface {
	AddRate(ctx context.Context, r *domain.ExchangeRate) error
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error)
}
