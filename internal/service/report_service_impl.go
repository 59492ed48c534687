package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/contract"
	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/evm"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type reportService struct {
	accounts repository.ControlAccountRepo
	budgets  repository.BudgetRepo
	nodes    repository.CostNodeRepo
	uow      db.UnitOfWork
}

func NewReportService(accounts repository.ControlAccountRepo, budgets repository.BudgetRepo, nodes repository.CostNodeRepo, uow db.UnitOfWork) ReportService {
	return &reportService{accounts: accounts, budgets: budgets, nodes: nodes, uow: uow}
}

// BuildReport assembles the nine-column cost control report: one line per
// control account plus a total line recomputed from the summed base figures.
// It reads everything inside one transaction and mutates nothing.
func (s *reportService) BuildReport(ctx context.Context, req contract.ReportRequest) (*contract.CostReport, error) {
	method, asOf, err := normalizeReportRequest(&req)
	if err != nil {
		return nil, err
	}

	var report *contract.CostReport
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txBudgets := repository.NewSQLiteBudgetRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		figures, included, reportCurrency, err := projectFigures(ctx, txAccounts, txBudgets, txNodes, conv, req, asOf, method)
		if err != nil {
			return err
		}

		report = &contract.CostReport{
			ProjectID: req.ProjectID,
			AsOf:      asOf,
			Currency:  reportCurrency,
			Method:    string(method),
			Lines:     make([]contract.ReportLine, 0, len(figures)),
		}
		for i, f := range figures {
			a := included[i]
			report.Lines = append(report.Lines, reportLine(a.Code, a.Description, a.PercentComplete, f))
		}

		total := evm.Rollup(figures)
		report.Total = totalLine(total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// reportLine derives the presentation columns from converted base figures so
// a line can never disagree with the total it contributes to.
func reportLine(code, description string, pct decimal.Decimal, f evm.AccountFigures) contract.ReportLine {
	return contract.ReportLine{
		AccountCode: code,
		Description: description,
		PV:          f.PV,
		PhysicalPct: pct,
		EV:          f.EV,
		AC:          f.AC,
		CV:          f.EV.Sub(f.AC),
		SV:          f.EV.Sub(f.PV),
		CPI:         domain.SafeIndex(f.EV, f.AC),
		EAC:         f.EAC,
	}
}

func totalLine(total evm.Summary) contract.ReportLine {
	hundred := decimal.NewFromInt(100)
	return contract.ReportLine{
		Description: "TOTAL",
		PV:          total.PV,
		PhysicalPct: domain.SafeIndex(total.EV, total.BAC).Mul(hundred).Round(2),
		EV:          total.EV,
		AC:          total.AC,
		CV:          total.CV,
		SV:          total.SV,
		CPI:         total.CPI,
		EAC:         total.EAC,
	}
}
