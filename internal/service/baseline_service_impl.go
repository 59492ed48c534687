package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type baselineService struct {
	budgets  repository.BudgetRepo
	accounts repository.ControlAccountRepo
	uow      db.UnitOfWork
}

func NewBaselineService(budgets repository.BudgetRepo, accounts repository.ControlAccountRepo, uow db.UnitOfWork) BaselineService {
	return &baselineService{budgets: budgets, accounts: accounts, uow: uow}
}

func (s *baselineService) CreateRevision(ctx context.Context, accountID string) (*domain.BudgetRevision, error) {
	var rev *domain.BudgetRevision
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		number, err := txBudgets.NextRevisionNumber(ctx, a.ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rev = &domain.BudgetRevision{
			ID:               uuid.New().String(),
			ControlAccountID: a.ID,
			RevisionNumber:   number,
			Status:           domain.RevisionDraft,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return txBudgets.CreateRevision(ctx, rev)
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *baselineService) GetRevision(ctx context.Context, id string) (*domain.BudgetRevision, error) {
	return s.budgets.GetRevision(ctx, id)
}

func (s *baselineService) ListRevisions(ctx context.Context, accountID string) ([]*domain.BudgetRevision, error) {
	return s.budgets.ListRevisions(ctx, accountID)
}

func (s *baselineService) AddPeriods(ctx context.Context, revisionID string, rows []*domain.TimePhasedBudget) error {
	if len(rows) == 0 {
		return fmt.Errorf("at least one period row is required: %w", domain.ErrValidation)
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		if rev.Status != domain.RevisionDraft {
			return fmt.Errorf("revision %d is %s, periods can only be added to drafts: %w",
				rev.RevisionNumber, rev.Status, domain.ErrConflict)
		}

		now := time.Now().UTC()
		for _, row := range rows {
			if row.ID == "" {
				row.ID = uuid.New().String()
			}
			row.RevisionID = rev.ID
			row.ControlAccountID = rev.ControlAccountID
			row.CreatedAt = now
			if err := txBudgets.CreateTimePhased(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *baselineService) ListPeriods(ctx context.Context, revisionID string) ([]*domain.TimePhasedBudget, error) {
	return s.budgets.ListTimePhased(ctx, revisionID)
}

// Submit validates the revision's time-phased rows before moving it forward:
// contiguous non-overlapping periods and a monotone cumulative curve.
func (s *baselineService) Submit(ctx context.Context, revisionID, actor string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		rows, err := txBudgets.ListTimePhased(ctx, rev.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("revision %d has no time-phased rows: %w", rev.RevisionNumber, domain.ErrValidation)
		}
		if err := domain.ValidatePeriods(rows); err != nil {
			return err
		}
		if err := rev.Submit(actor); err != nil {
			return err
		}
		rev.UpdatedAt = time.Now().UTC()
		return txBudgets.UpdateRevision(ctx, rev)
	})
}

func (s *baselineService) Approve(ctx context.Context, revisionID, actor, comments string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		if err := rev.Approve(actor, comments); err != nil {
			return err
		}
		rev.UpdatedAt = time.Now().UTC()
		return txBudgets.UpdateRevision(ctx, rev)
	})
}

func (s *baselineService) Reject(ctx context.Context, revisionID, comments string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		if err := rev.Reject(comments); err != nil {
			return err
		}
		rev.UpdatedAt = time.Now().UTC()
		return txBudgets.UpdateRevision(ctx, rev)
	})
}

// SetAsBaseline archives the previous baselined revision and baselines the
// given one in the same transaction, so at most one baselined revision per
// control account is ever observable. The account row-version write makes
// concurrent baseline switches fail loudly instead of racing.
func (s *baselineService) SetAsBaseline(ctx context.Context, revisionID string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		if rev.Status != domain.RevisionApproved {
			return fmt.Errorf("revision %d is %s, only approved revisions can be baselined: %w",
				rev.RevisionNumber, rev.Status, domain.ErrNotApproved)
		}

		now := time.Now().UTC()

		old, err := txBudgets.GetBaselined(ctx, rev.ControlAccountID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if old != nil {
			old.Status = domain.RevisionArchived
			old.UpdatedAt = now
			if err := txBudgets.UpdateRevision(ctx, old); err != nil {
				return err
			}
			if err := txBudgets.SetBaselineFlag(ctx, old.ID, false); err != nil {
				return err
			}
		}

		rev.Status = domain.RevisionBaselined
		rev.BaselinedAt = &now
		rev.UpdatedAt = now
		if err := txBudgets.UpdateRevision(ctx, rev); err != nil {
			return err
		}
		if err := txBudgets.SetBaselineFlag(ctx, rev.ID, true); err != nil {
			return err
		}

		a, err := txAccounts.GetByID(ctx, rev.ControlAccountID)
		if err != nil {
			return err
		}
		a.BaselineDate = &now
		a.UpdatedAt = now
		return txAccounts.Update(ctx, a)
	})
}

func (s *baselineService) Archive(ctx context.Context, revisionID string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txBudgets := repository.NewSQLiteBudgetRepo(tx)

		rev, err := txBudgets.GetRevision(ctx, revisionID)
		if err != nil {
			return err
		}
		if rev.Status != domain.RevisionApproved && rev.Status != domain.RevisionBaselined {
			return fmt.Errorf("revision %d is %s and cannot be archived: %w",
				rev.RevisionNumber, rev.Status, domain.ErrConflict)
		}
		wasBaselined := rev.Status == domain.RevisionBaselined
		rev.Status = domain.RevisionArchived
		rev.UpdatedAt = time.Now().UTC()
		if err := txBudgets.UpdateRevision(ctx, rev); err != nil {
			return err
		}
		if wasBaselined {
			return txBudgets.SetBaselineFlag(ctx, rev.ID, false)
		}
		return nil
	})
}

func (s *baselineService) GetBaselined(ctx context.Context, accountID string) (*domain.BudgetRevision, error) {
	return s.budgets.GetBaselined(ctx, accountID)
}
