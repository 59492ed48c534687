package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cayaqui/costcontrol/internal/contract"
	"github.com/cayaqui/costcontrol/internal/currency"
	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/evm"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type evmService struct {
	accounts repository.ControlAccountRepo
	budgets  repository.BudgetRepo
	nodes    repository.CostNodeRepo
	records  repository.EVMRecordRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewEVMService(accounts repository.ControlAccountRepo, budgets repository.BudgetRepo, nodes repository.CostNodeRepo, records repository.EVMRecordRepo, uow db.UnitOfWork, observers ...UseCaseObserver) EVMService {
	return &evmService{
		accounts: accounts,
		budgets:  budgets,
		nodes:    nodes,
		records:  records,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
	}
}

// ComputeRecord reads PV, AC and progress inside one transaction, evaluates
// the formula set and persists the snapshot. Recomputing an unapproved
// snapshot for the same date overwrites it; approved snapshots are immutable.
func (s *evmService) ComputeRecord(ctx context.Context, accountID string, asOf time.Time, method domain.ForecastMethod) (rec *domain.EVMRecord, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "compute-evm-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"account_id": accountID, "as_of": asOf.Format("2006-01-02")},
		})
	}()

	if !domain.ValidForecastMethods[string(method)] {
		return nil, fmt.Errorf("unknown forecast method %q: %w", method, domain.ErrValidation)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txBudgets := repository.NewSQLiteBudgetRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		txRecords := repository.NewSQLiteEVMRecordRepo(tx)
		conv := txConverter(tx)

		a, err := txAccounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		m, err := computeAccountMetrics(ctx, txBudgets, txNodes, conv, a, asOf, method)
		if err != nil {
			return err
		}

		rec = &domain.EVMRecord{
			ID:               uuid.New().String(),
			ControlAccountID: a.ID,
			DataDate:         asOf,
			PV:               m.PV,
			EV:               m.EV,
			AC:               m.AC,
			BAC:              m.BAC,
			EAC:              m.EAC,
			ETC:              m.ETC,
			ForecastMethod:   method,
			Status:           a.Status,
			CreatedAt:        time.Now().UTC(),
		}

		existing, err := txRecords.GetByAccountAndDate(ctx, a.ID, asOf)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return txRecords.Create(ctx, rec)
			}
			return err
		}
		if existing.IsApproved {
			return fmt.Errorf("EVM record for account %s at %s is approved and immutable: %w",
				a.Code, asOf.Format("2006-01-02"), domain.ErrConflict)
		}
		rec.ID = existing.ID
		rec.IsBaseline = existing.IsBaseline
		rec.CreatedAt = existing.CreatedAt
		return txRecords.Replace(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *evmService) ApproveRecord(ctx context.Context, accountID string, asOf time.Time) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRecords := repository.NewSQLiteEVMRecordRepo(tx)

		rec, err := txRecords.GetByAccountAndDate(ctx, accountID, asOf)
		if err != nil {
			return err
		}
		return txRecords.Approve(ctx, rec.ID)
	})
}

func (s *evmService) ListRecords(ctx context.Context, accountID string) ([]*domain.EVMRecord, error) {
	return s.records.ListByAccount(ctx, accountID)
}

// RollupProject computes per-account metrics at the data date, converts the
// base figures to the report currency and recomputes the project ratios from
// the sums. Draft accounts are excluded; any included account without a
// baselined revision fails the roll-up.
func (s *evmService) RollupProject(ctx context.Context, req contract.ReportRequest) (sum *contract.ProjectEVMSummary, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "rollup-project",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"project_id": req.ProjectID},
		})
	}()

	method, asOf, err := normalizeReportRequest(&req)
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txBudgets := repository.NewSQLiteBudgetRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		figures, _, reportCurrency, err := projectFigures(ctx, txAccounts, txBudgets, txNodes, conv, req, asOf, method)
		if err != nil {
			return err
		}

		total := evm.Rollup(figures)
		sum = &contract.ProjectEVMSummary{
			ProjectID:    req.ProjectID,
			AsOf:         asOf,
			Currency:     reportCurrency,
			AccountCount: len(figures),
			PV:           total.PV,
			EV:           total.EV,
			AC:           total.AC,
			BAC:          total.BAC,
			EAC:          total.EAC,
			ETC:          total.ETC,
			CV:           total.CV,
			SV:           total.SV,
			VAC:          total.VAC,
			CPI:          total.CPI,
			SPI:          total.SPI,
			TCPI:         total.TCPI,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// normalizeReportRequest resolves defaults: forecast method and data date.
func normalizeReportRequest(req *contract.ReportRequest) (domain.ForecastMethod, time.Time, error) {
	if req.ProjectID == "" {
		return "", time.Time{}, fmt.Errorf("project is required: %w", domain.ErrValidation)
	}
	method := domain.ForecastMethod(req.ForecastMethod)
	if req.ForecastMethod == "" {
		method = domain.ForecastActualPlusRemaining
	}
	if !domain.ValidForecastMethods[string(method)] {
		return "", time.Time{}, fmt.Errorf("unknown forecast method %q: %w", req.ForecastMethod, domain.ErrValidation)
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return method, asOf, nil
}

// projectFigures evaluates each non-draft account and converts its base
// figures to the report currency. Returns the figures, the accounts in the
// same order, and the resolved currency.
func projectFigures(ctx context.Context, accounts repository.ControlAccountRepo, budgets repository.BudgetRepo, nodes repository.CostNodeRepo, conv *currency.Converter, req contract.ReportRequest, asOf time.Time, method domain.ForecastMethod) ([]evm.AccountFigures, []*domain.ControlAccount, string, error) {
	all, err := accounts.ListByProject(ctx, req.ProjectID)
	if err != nil {
		return nil, nil, "", err
	}
	var included []*domain.ControlAccount
	for _, a := range all {
		if a.Status == domain.AccountDraft {
			continue
		}
		included = append(included, a)
	}
	if len(included) == 0 {
		return nil, nil, "", fmt.Errorf("project %s has no active control accounts: %w", req.ProjectID, domain.ErrNotFound)
	}

	reportCurrency := req.Currency
	if reportCurrency == "" {
		reportCurrency = included[0].Currency
	}

	figures := make([]evm.AccountFigures, 0, len(included))
	for _, a := range included {
		m, err := computeAccountMetrics(ctx, budgets, nodes, conv, a, asOf, method)
		if err != nil {
			return nil, nil, "", err
		}

		bac := m.BAC
		if req.IncludeReserves {
			bac = a.TotalBudget()
		}

		f := evm.AccountFigures{ControlAccountID: a.ID}
		if f.PV, err = conv.Convert(ctx, m.PV, a.Currency, reportCurrency, asOf); err != nil {
			return nil, nil, "", err
		}
		if f.EV, err = conv.Convert(ctx, m.EV, a.Currency, reportCurrency, asOf); err != nil {
			return nil, nil, "", err
		}
		if f.AC, err = conv.Convert(ctx, m.AC, a.Currency, reportCurrency, asOf); err != nil {
			return nil, nil, "", err
		}
		if f.BAC, err = conv.Convert(ctx, bac, a.Currency, reportCurrency, asOf); err != nil {
			return nil, nil, "", err
		}
		if f.EAC, err = conv.Convert(ctx, m.EAC, a.Currency, reportCurrency, asOf); err != nil {
			return nil, nil, "", err
		}
		figures = append(figures, f)
	}
	return figures, included, reportCurrency, nil
}
