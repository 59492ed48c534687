package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type accountService struct {
	accounts    repository.ControlAccountRepo
	nodes       repository.CostNodeRepo
	commitments repository.CommitmentRepo
	uow         db.UnitOfWork
}

func NewAccountService(accounts repository.ControlAccountRepo, nodes repository.CostNodeRepo, commitments repository.CommitmentRepo, uow db.UnitOfWork) AccountService {
	return &accountService{accounts: accounts, nodes: nodes, commitments: commitments, uow: uow}
}

func (s *accountService) Create(ctx context.Context, a *domain.ControlAccount) error {
	if a.Code == "" {
		return fmt.Errorf("control account code is required: %w", domain.ErrValidation)
	}
	if a.Currency == "" {
		return fmt.Errorf("control account currency is required: %w", domain.ErrValidation)
	}
	if !domain.ValidMeasurementMethods[string(a.MeasurementMethod)] {
		return fmt.Errorf("unknown measurement method %q: %w", a.MeasurementMethod, domain.ErrValidation)
	}
	if a.BAC.IsNegative() || a.ContingencyReserve.IsNegative() || a.ManagementReserve.IsNegative() {
		return fmt.Errorf("control account budget figures must be non-negative: %w", domain.ErrValidation)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.Status = domain.AccountDraft
	a.RowVersion = 1
	a.CreatedAt = now
	a.UpdatedAt = now

	// The owned cost node must exist before the account is created.
	if _, err := s.nodes.GetByID(ctx, a.CostNodeID); err != nil {
		return err
	}
	return s.accounts.Create(ctx, a)
}

func (s *accountService) GetByID(ctx context.Context, id string) (*domain.ControlAccount, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *accountService) GetByCode(ctx context.Context, projectID, code string) (*domain.ControlAccount, error) {
	return s.accounts.GetByCode(ctx, projectID, code)
}

func (s *accountService) ListByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error) {
	return s.accounts.ListByProject(ctx, projectID)
}

func (s *accountService) ListActiveByProject(ctx context.Context, projectID string) ([]*domain.ControlAccount, error) {
	return s.accounts.ListActiveByProject(ctx, projectID)
}

func (s *accountService) AssignWorkPackage(ctx context.Context, accountID, workPackageID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("allocation amount must be positive: %w", domain.ErrValidation)
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		allocated, err := txAccounts.SumAllocations(ctx, a.ID)
		if err != nil {
			return err
		}
		if allocated.Add(amount).GreaterThan(a.BAC) {
			return fmt.Errorf("allocating %s to work package %s would exceed BAC %s on account %s: %w",
				amount, workPackageID, a.BAC, a.Code, domain.ErrOverAllocation)
		}

		return txAccounts.CreateAllocation(ctx, &domain.WorkPackageAllocation{
			ID:               uuid.New().String(),
			ControlAccountID: a.ID,
			WorkPackageID:    workPackageID,
			AllocatedAmount:  amount,
			CreatedAt:        time.Now().UTC(),
		})
	})
}

func (s *accountService) RecordProgress(ctx context.Context, accountID string, pct decimal.Decimal) error {
	if err := domain.ValidateProgress(pct); err != nil {
		return err
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Status != domain.AccountActive {
			return fmt.Errorf("control account %s is %s, progress requires an active account: %w", a.Code, a.Status, domain.ErrConflict)
		}
		a.PercentComplete = pct
		a.UpdatedAt = time.Now().UTC()
		return txAccounts.Update(ctx, a)
	})
}

func (s *accountService) Activate(ctx context.Context, accountID string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Status != domain.AccountDraft {
			return fmt.Errorf("control account %s is %s, only drafts can be activated: %w", a.Code, a.Status, domain.ErrConflict)
		}
		a.Status = domain.AccountActive
		a.UpdatedAt = time.Now().UTC()
		return txAccounts.Update(ctx, a)
	})
}

func (s *accountService) Close(ctx context.Context, accountID string) error {
	hundred := decimal.NewFromInt(100)

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Status != domain.AccountActive {
			return fmt.Errorf("control account %s is %s, only active accounts can be closed: %w", a.Code, a.Status, domain.ErrConflict)
		}
		if !a.PercentComplete.Equal(hundred) {
			return fmt.Errorf("control account %s is %s%% complete: %w", a.Code, a.PercentComplete, domain.ErrPrematureClose)
		}

		commitments, err := txCommitments.ListByControlAccount(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, c := range commitments {
			if c.Status != domain.CommitmentClosed {
				return fmt.Errorf("commitment %s on account %s is still %s: %w", c.Code, a.Code, c.Status, domain.ErrPrematureClose)
			}
		}

		a.Status = domain.AccountClosed
		a.UpdatedAt = time.Now().UTC()
		return txAccounts.Update(ctx, a)
	})
}

func (s *accountService) MapWBS(ctx context.Context, workPackageID, costNodeID string, percent decimal.Decimal) error {
	if percent.Sign() <= 0 {
		return fmt.Errorf("mapping percent must be positive: %w", domain.ErrValidation)
	}
	hundred := decimal.NewFromInt(100)

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)

		if _, err := txNodes.GetByID(ctx, costNodeID); err != nil {
			return err
		}
		mapped, err := txAccounts.SumMappingPercent(ctx, workPackageID)
		if err != nil {
			return err
		}
		if mapped.Add(percent).GreaterThan(hundred) {
			return fmt.Errorf("mapping %s%% of work package %s would exceed 100%%: %w", percent, workPackageID, domain.ErrValidation)
		}

		return txAccounts.CreateMapping(ctx, &domain.WBSCBSMapping{
			ID:            uuid.New().String(),
			WorkPackageID: workPackageID,
			CostNodeID:    costNodeID,
			Percent:       percent,
			CreatedAt:     time.Now().UTC(),
		})
	})
}
