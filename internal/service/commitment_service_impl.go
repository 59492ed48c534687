package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type commitmentService struct {
	commitments repository.CommitmentRepo
	accounts    repository.ControlAccountRepo
	nodes       repository.CostNodeRepo
	uow         db.UnitOfWork
}

func NewCommitmentService(commitments repository.CommitmentRepo, accounts repository.ControlAccountRepo, nodes repository.CostNodeRepo, uow db.UnitOfWork) CommitmentService {
	return &commitmentService{commitments: commitments, accounts: accounts, nodes: nodes, uow: uow}
}

func (s *commitmentService) Create(ctx context.Context, c *domain.Commitment, items []*domain.CommitmentItem) error {
	if c.Code == "" {
		return fmt.Errorf("commitment code is required: %w", domain.ErrValidation)
	}
	if c.Currency == "" {
		return fmt.Errorf("commitment currency is required: %w", domain.ErrValidation)
	}
	if c.OriginalAmount.Sign() <= 0 {
		return fmt.Errorf("commitment amount must be positive: %w", domain.ErrValidation)
	}
	hundred := decimal.NewFromInt(100)
	if c.RetentionPercentage.IsNegative() || c.RetentionPercentage.GreaterThan(hundred) {
		return fmt.Errorf("retention percentage %s outside [0,100]: %w", c.RetentionPercentage, domain.ErrValidation)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.Status = domain.CommitmentDraft
	c.RevisedAmount = c.OriginalAmount
	c.CommittedAmount = c.OriginalAmount
	c.CreatedAt = now
	c.UpdatedAt = now

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)

		if _, err := txAccounts.GetByID(ctx, c.ControlAccountID); err != nil {
			return err
		}
		if err := txCommitments.Create(ctx, c); err != nil {
			return err
		}
		for _, item := range items {
			node, err := txNodes.GetByID(ctx, item.BudgetItemID)
			if err != nil {
				return err
			}
			if !node.IsLeaf {
				return fmt.Errorf("commitment line charges non-leaf node %s: %w", node.Code, domain.ErrImmutableNode)
			}
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.CommitmentID = c.ID
			item.CreatedAt = now
			if err := txCommitments.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *commitmentService) GetByID(ctx context.Context, id string) (*domain.Commitment, error) {
	return s.commitments.GetByID(ctx, id)
}

func (s *commitmentService) GetByCode(ctx context.Context, projectID, code string) (*domain.Commitment, error) {
	return s.commitments.GetByCode(ctx, projectID, code)
}

func (s *commitmentService) ListByProject(ctx context.Context, projectID string) ([]*domain.Commitment, error) {
	return s.commitments.ListByProject(ctx, projectID)
}

func (s *commitmentService) Approve(ctx context.Context, id string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		c, err := txCommitments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Approve(); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		return txCommitments.Update(ctx, c)
	})
}

// Activate opens the commitment for invoicing and posts its committed cost to
// the charged leaf nodes: each line's net amount to its budget item, or the
// whole committed amount to the account's cost node when the commitment has
// no lines.
func (s *commitmentService) Activate(ctx context.Context, id string) error {
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		c, err := txCommitments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Activate(); err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := txCommitments.Update(ctx, c); err != nil {
			return err
		}

		items, err := txCommitments.ListItems(ctx, c.ID)
		if err != nil {
			return err
		}
		charges, err := commitmentCharges(ctx, txAccounts, c, items)
		if err != nil {
			return err
		}
		for nodeID, amount := range charges {
			if err := addLeafCommitted(ctx, txNodes, conv, nodeID, amount, c.Currency, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Revise appends a revision row and moves the revised and committed amounts.
// History is additive: previous amounts survive in the revision trail. On an
// active commitment the delta posts to the charged nodes proportionally to
// their line shares.
func (s *commitmentService) Revise(ctx context.Context, id string, newAmount decimal.Decimal, reason, approver string) error {
	if newAmount.Sign() <= 0 {
		return fmt.Errorf("revised amount must be positive: %w", domain.ErrValidation)
	}
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		c, err := txCommitments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.Status == domain.CommitmentClosed {
			return fmt.Errorf("commitment %s is closed and cannot be revised: %w", c.Code, domain.ErrConflict)
		}
		if newAmount.LessThan(c.InvoicedAmount) {
			return fmt.Errorf("revised amount %s is below invoiced %s on commitment %s: %w",
				newAmount, c.InvoicedAmount, c.Code, domain.ErrConflict)
		}

		revisions, err := txCommitments.ListRevisions(ctx, c.ID)
		if err != nil {
			return err
		}
		previous := c.RevisedAmount
		delta := newAmount.Sub(previous)

		rev := &domain.CommitmentRevision{
			ID:             uuid.New().String(),
			CommitmentID:   c.ID,
			RevisionNumber: len(revisions) + 1,
			PreviousAmount: previous,
			RevisedAmount:  newAmount,
			Reason:         reason,
			ApprovedBy:     approver,
			CreatedAt:      now,
		}
		if err := txCommitments.CreateRevision(ctx, rev); err != nil {
			return err
		}

		c.RevisedAmount = newAmount
		c.CommittedAmount = newAmount
		c.UpdatedAt = now
		if err := txCommitments.Update(ctx, c); err != nil {
			return err
		}

		if c.Status != domain.CommitmentActive || delta.IsZero() {
			return nil
		}
		items, err := txCommitments.ListItems(ctx, c.ID)
		if err != nil {
			return err
		}
		charges, err := commitmentDeltaCharges(ctx, txAccounts, c, items, delta)
		if err != nil {
			return err
		}
		for nodeID, amount := range charges {
			if err := addLeafCommitted(ctx, txNodes, conv, nodeID, amount, c.Currency, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *commitmentService) ListRevisions(ctx context.Context, id string) ([]*domain.CommitmentRevision, error) {
	return s.commitments.ListRevisions(ctx, id)
}

func (s *commitmentService) AllocateToWorkPackage(ctx context.Context, commitmentID, workPackageID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("allocation amount must be positive: %w", domain.ErrValidation)
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		c, err := txCommitments.GetByID(ctx, commitmentID)
		if err != nil {
			return err
		}
		existing, err := txCommitments.ListWorkPackages(ctx, c.ID)
		if err != nil {
			return err
		}
		allocated := decimal.Zero
		for _, w := range existing {
			allocated = allocated.Add(w.AllocatedAmount)
		}
		if allocated.Add(amount).GreaterThan(c.CommittedAmount) {
			return fmt.Errorf("allocating %s to work package %s would exceed committed %s on commitment %s: %w",
				amount, workPackageID, c.CommittedAmount, c.Code, domain.ErrOverAllocation)
		}

		return txCommitments.CreateWorkPackage(ctx, &domain.CommitmentWorkPackage{
			ID:              uuid.New().String(),
			CommitmentID:    c.ID,
			WorkPackageID:   workPackageID,
			AllocatedAmount: amount,
			CreatedAt:       time.Now().UTC(),
		})
	})
}

func (s *commitmentService) Close(ctx context.Context, id string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		c, err := txCommitments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Close(); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		return txCommitments.Update(ctx, c)
	})
}

// commitmentCharges maps leaf node IDs to the committed amount posted at
// activation: line net amounts when lines exist, the committed amount on the
// account's cost node otherwise.
func commitmentCharges(ctx context.Context, accounts repository.ControlAccountRepo, c *domain.Commitment, items []*domain.CommitmentItem) (map[string]decimal.Decimal, error) {
	charges := make(map[string]decimal.Decimal)
	if len(items) == 0 {
		a, err := accounts.GetByID(ctx, c.ControlAccountID)
		if err != nil {
			return nil, err
		}
		charges[a.CostNodeID] = c.CommittedAmount
		return charges, nil
	}
	for _, item := range items {
		charges[item.BudgetItemID] = charges[item.BudgetItemID].Add(item.NetAmount())
	}
	return charges, nil
}

// commitmentDeltaCharges distributes an amount delta across the commitment's
// charged nodes proportionally to their line net amounts; the last node
// absorbs the rounding remainder so the delta is conserved exactly.
func commitmentDeltaCharges(ctx context.Context, accounts repository.ControlAccountRepo, c *domain.Commitment, items []*domain.CommitmentItem, delta decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(items) == 0 {
		a, err := accounts.GetByID(ctx, c.ControlAccountID)
		if err != nil {
			return nil, err
		}
		return map[string]decimal.Decimal{a.CostNodeID: delta}, nil
	}

	total := decimal.Zero
	lineCharges, err := commitmentCharges(ctx, accounts, c, items)
	if err != nil {
		return nil, err
	}
	for _, amount := range lineCharges {
		total = total.Add(amount)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("commitment %s lines sum to zero, delta cannot be distributed: %w", c.Code, domain.ErrValidation)
	}

	nodeIDs := make([]string, 0, len(lineCharges))
	for nodeID := range lineCharges {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)

	charges := make(map[string]decimal.Decimal, len(nodeIDs))
	assigned := decimal.Zero
	for i, nodeID := range nodeIDs {
		if i == len(nodeIDs)-1 {
			charges[nodeID] = delta.Sub(assigned)
			break
		}
		share := delta.Mul(lineCharges[nodeID]).DivRound(total, 2)
		charges[nodeID] = share
		assigned = assigned.Add(share)
	}
	return charges, nil
}
