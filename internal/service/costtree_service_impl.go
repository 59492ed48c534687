package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type costTreeService struct {
	nodes    repository.CostNodeRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewCostTreeService(nodes repository.CostNodeRepo, uow db.UnitOfWork, observers ...UseCaseObserver) CostTreeService {
	return &costTreeService{nodes: nodes, uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *costTreeService) AddNode(ctx context.Context, n *domain.CostNode) error {
	if err := n.ValidateCode(); err != nil {
		return err
	}
	if n.ProjectID == "" {
		return fmt.Errorf("cost node project is required: %w", domain.ErrValidation)
	}
	if n.Currency == "" {
		return fmt.Errorf("cost node currency is required: %w", domain.ErrValidation)
	}
	if n.OriginalBudget.IsNegative() {
		return fmt.Errorf("cost node budget must be non-negative: %w", domain.ErrValidation)
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	n.IsLeaf = true
	n.RowVersion = 1
	n.ForecastCost = leafForecast(n)
	n.CreatedAt = now
	n.UpdatedAt = now

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		if n.ParentID == nil {
			n.Level = 0
			return txNodes.Create(ctx, n)
		}

		parent, err := txNodes.GetByID(ctx, *n.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("parent of cost node %s does not exist: %w", n.Code, domain.ErrInvalidHierarchy)
			}
			return err
		}
		if parent.DeletedAt != nil {
			return fmt.Errorf("parent of cost node %s is deleted: %w", n.Code, domain.ErrInvalidHierarchy)
		}
		if !strings.HasPrefix(n.Code, parent.Code+".") {
			return fmt.Errorf("cost node code %s must extend parent code %s: %w", n.Code, parent.Code, domain.ErrInvalidHierarchy)
		}
		n.Level = parent.Level + 1

		if parent.IsLeaf {
			if parent.HasPostings() {
				return fmt.Errorf("cost node %s carries postings and cannot gain children: %w", parent.Code, domain.ErrConflict)
			}
			parent.IsLeaf = false
			parent.UpdatedAt = now
			if err := txNodes.Update(ctx, parent); err != nil {
				return err
			}
		}

		if err := txNodes.Create(ctx, n); err != nil {
			return err
		}
		return rollupAncestors(ctx, txNodes, conv, n, now)
	})
}

func (s *costTreeService) GetNode(ctx context.Context, id string) (*domain.CostNode, error) {
	return s.nodes.GetByID(ctx, id)
}

func (s *costTreeService) GetNodeByCode(ctx context.Context, projectID, code string) (*domain.CostNode, error) {
	return s.nodes.GetByCode(ctx, projectID, code)
}

func (s *costTreeService) ListByProject(ctx context.Context, projectID string) ([]*domain.CostNode, error) {
	return s.nodes.ListByProject(ctx, projectID)
}

func (s *costTreeService) ApplyApprovedChange(ctx context.Context, nodeID string, amount decimal.Decimal, reason, actor string) error {
	if amount.IsZero() {
		return fmt.Errorf("budget change amount must be non-zero: %w", domain.ErrValidation)
	}
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		node, err := txNodes.GetByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node.DeletedAt != nil {
			return fmt.Errorf("cost node %s: %w", node.Code, domain.ErrNotFound)
		}
		if !node.IsLeaf {
			return fmt.Errorf("cost node %s is not a leaf, budget changes apply to leaves only: %w", node.Code, domain.ErrImmutableNode)
		}
		if node.CurrentBudget().Add(amount).IsNegative() {
			return fmt.Errorf("budget change would make cost node %s budget negative: %w", node.Code, domain.ErrValidation)
		}

		node.ApprovedChanges = node.ApprovedChanges.Add(amount)
		node.ForecastCost = leafForecast(node)
		node.UpdatedAt = now
		if err := txNodes.Update(ctx, node); err != nil {
			return err
		}

		change := &domain.BudgetChange{
			ID:         uuid.New().String(),
			CostNodeID: node.ID,
			Amount:     amount,
			Reason:     reason,
			CreatedBy:  actor,
			CreatedAt:  now,
		}
		if err := txNodes.AddBudgetChange(ctx, change); err != nil {
			return err
		}
		return rollupAncestors(ctx, txNodes, conv, node, now)
	})
}

func (s *costTreeService) ListBudgetChanges(ctx context.Context, nodeID string) ([]*domain.BudgetChange, error) {
	return s.nodes.ListBudgetChanges(ctx, nodeID)
}

func (s *costTreeService) RecomputeRollups(ctx context.Context, rootID string, asOf time.Time) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "recompute-rollups",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"root_id": rootID},
		})
	}()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		root, err := txNodes.GetByID(ctx, rootID)
		if err != nil {
			return err
		}
		visited := make(map[string]bool)
		if _, err := recomputeSubtree(ctx, txNodes, conv, root, asOf, visited); err != nil {
			return err
		}
		return rollupAncestors(ctx, txNodes, conv, root, asOf)
	})
}

func (s *costTreeService) SoftDeleteNode(ctx context.Context, id string) error {
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		node, err := txNodes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if node.DeletedAt != nil {
			return nil
		}
		if node.HasPostings() {
			return fmt.Errorf("cost node %s carries postings and cannot be deleted: %w", node.Code, domain.ErrConflict)
		}
		children, err := txNodes.ListChildren(ctx, node.ID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("cost node %s has children and cannot be deleted: %w", node.Code, domain.ErrConflict)
		}

		if err := txNodes.SoftDelete(ctx, node.ID, now); err != nil {
			return err
		}
		return rollupAncestors(ctx, txNodes, conv, node, now)
	})
}
