package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// CostNode options
type NodeOption func(*domain.CostNode)

func WithParentID(id string) NodeOption {
	return func(n *domain.CostNode) {
		n.ParentID = &id
	}
}

func WithLevel(level int) NodeOption {
	return func(n *domain.CostNode) {
		n.Level = level
	}
}

func WithLeaf(leaf bool) NodeOption {
	return func(n *domain.CostNode) {
		n.IsLeaf = leaf
	}
}

func WithNodeCurrency(ccy string) NodeOption {
	return func(n *domain.CostNode) {
		n.Currency = ccy
	}
}

func WithOriginalBudget(amount decimal.Decimal) NodeOption {
	return func(n *domain.CostNode) {
		n.OriginalBudget = amount
	}
}

func NewTestNode(projectID, code string, opts ...NodeOption) *domain.CostNode {
	now := time.Now().UTC()
	n := &domain.CostNode{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Code:        code,
		Description: "node " + code,
		Level:       0,
		IsLeaf:      true,
		Currency:    "USD",
		RowVersion:  1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ControlAccount options
type AccountOption func(*domain.ControlAccount)

func WithBAC(amount decimal.Decimal) AccountOption {
	return func(a *domain.ControlAccount) {
		a.BAC = amount
	}
}

func WithReserves(contingency, management decimal.Decimal) AccountOption {
	return func(a *domain.ControlAccount) {
		a.ContingencyReserve = contingency
		a.ManagementReserve = management
	}
}

func WithAccountStatus(s domain.AccountStatus) AccountOption {
	return func(a *domain.ControlAccount) {
		a.Status = s
	}
}

func WithPercentComplete(pct decimal.Decimal) AccountOption {
	return func(a *domain.ControlAccount) {
		a.PercentComplete = pct
	}
}

func WithAccountCurrency(ccy string) AccountOption {
	return func(a *domain.ControlAccount) {
		a.Currency = ccy
	}
}

func NewTestAccount(projectID, costNodeID, code string, opts ...AccountOption) *domain.ControlAccount {
	now := time.Now().UTC()
	a := &domain.ControlAccount{
		ID:                uuid.New().String(),
		ProjectID:         projectID,
		CostNodeID:        costNodeID,
		Code:              code,
		Description:       "account " + code,
		BAC:               decimal.NewFromInt(100000),
		MeasurementMethod: domain.MeasurePercentComplete,
		Status:            domain.AccountDraft,
		Currency:          "USD",
		RowVersion:        1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Commitment options
type CommitmentOption func(*domain.Commitment)

func WithCommitmentStatus(s domain.CommitmentStatus) CommitmentOption {
	return func(c *domain.Commitment) {
		c.Status = s
	}
}

func WithRetention(pct decimal.Decimal) CommitmentOption {
	return func(c *domain.Commitment) {
		c.RetentionPercentage = pct
	}
}

func WithCommitmentCurrency(ccy string) CommitmentOption {
	return func(c *domain.Commitment) {
		c.Currency = ccy
	}
}

func NewTestCommitment(projectID, accountID, code string, amount decimal.Decimal, opts ...CommitmentOption) *domain.Commitment {
	now := time.Now().UTC()
	c := &domain.Commitment{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		ControlAccountID: accountID,
		Code:             code,
		VendorName:       "Acme Supply Co",
		Status:           domain.CommitmentDraft,
		Currency:         "USD",
		OriginalAmount:   amount,
		RevisedAmount:    amount,
		CommittedAmount:  amount,
		CreatedBy:        "tester",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTestPeriods builds n contiguous monthly budget rows starting at start,
// each carrying pv planned value with a running cumulative.
func NewTestPeriods(accountID, revisionID string, start time.Time, n int, pv decimal.Decimal) []*domain.TimePhasedBudget {
	rows := make([]*domain.TimePhasedBudget, 0, n)
	cumulative := decimal.Zero
	for i := 0; i < n; i++ {
		periodStart := start.AddDate(0, i, 0)
		cumulative = cumulative.Add(pv)
		rows = append(rows, &domain.TimePhasedBudget{
			ID:                     uuid.New().String(),
			ControlAccountID:       accountID,
			RevisionID:             revisionID,
			PeriodStart:            periodStart,
			PeriodEnd:              periodStart.AddDate(0, 1, 0),
			PlannedValue:           pv,
			CumulativePlannedValue: cumulative,
			CreatedAt:              time.Now().UTC(),
		})
	}
	return rows
}

// NewTestRate builds a dated exchange rate.
func NewTestRate(from, to string, rate decimal.Decimal, date time.Time) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		ID:           uuid.New().String(),
		CurrencyFrom: from,
		CurrencyTo:   to,
		Date:         date,
		Rate:         rate,
		CreatedAt:    time.Now().UTC(),
	}
}
