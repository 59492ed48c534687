package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/contract"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func TestReportService_BuildReport(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	seedMeasuredAccount(t, e, "01", "CA-01",
		decimal.NewFromInt(100000), decimal.NewFromInt(20000),
		decimal.NewFromInt(30000), decimal.NewFromInt(50), 2)
	seedMeasuredAccount(t, e, "02", "CA-02",
		decimal.NewFromInt(200000), decimal.NewFromInt(50000),
		decimal.NewFromInt(60000), decimal.NewFromInt(25), 2)

	report, err := e.reportSvc.BuildReport(ctx, contract.ReportRequest{
		ProjectID: testProject,
		AsOf:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, testProject, report.ProjectID)
	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, string(domain.ForecastActualPlusRemaining), report.Method, "method defaults when omitted")
	require.Len(t, report.Lines, 2)

	first := report.Lines[0]
	assert.Equal(t, "CA-01", first.AccountCode)
	assert.True(t, first.PV.Equal(decimal.NewFromInt(40000)), "PV %s", first.PV)
	assert.True(t, first.PhysicalPct.Equal(decimal.NewFromInt(50)))
	assert.True(t, first.EV.Equal(decimal.NewFromInt(50000)))
	assert.True(t, first.AC.Equal(decimal.NewFromInt(30000)))
	assert.True(t, first.CV.Equal(decimal.NewFromInt(20000)), "CV = EV - AC, got %s", first.CV)
	assert.True(t, first.SV.Equal(decimal.NewFromInt(10000)), "SV = EV - PV, got %s", first.SV)
	assert.True(t, first.CPI.Equal(decimal.RequireFromString("1.6667")), "CPI %s", first.CPI)
	assert.True(t, first.EAC.Equal(decimal.NewFromInt(80000)), "EAC %s", first.EAC)

	second := report.Lines[1]
	assert.Equal(t, "CA-02", second.AccountCode)
	assert.True(t, second.PV.Equal(decimal.NewFromInt(100000)))
	assert.True(t, second.EV.Equal(decimal.NewFromInt(50000)))
	assert.True(t, second.CV.Equal(decimal.NewFromInt(-10000)))
	assert.True(t, second.SV.Equal(decimal.NewFromInt(-50000)))

	total := report.Total
	assert.Equal(t, "TOTAL", total.Description)
	assert.True(t, total.PV.Equal(decimal.NewFromInt(140000)))
	assert.True(t, total.EV.Equal(decimal.NewFromInt(100000)))
	assert.True(t, total.AC.Equal(decimal.NewFromInt(90000)))
	assert.True(t, total.CV.Equal(decimal.NewFromInt(10000)))
	assert.True(t, total.SV.Equal(decimal.NewFromInt(-40000)))
	assert.True(t, total.EAC.Equal(decimal.NewFromInt(290000)))

	// Total progress is earned over budget, not an average of the lines.
	assert.True(t, total.PhysicalPct.Equal(decimal.RequireFromString("33.33")),
		"physical %% %s", total.PhysicalPct)
	assert.True(t, total.CPI.Equal(decimal.RequireFromString("1.1111")))
}

func TestReportService_BuildReportValidation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	_, err := e.reportSvc.BuildReport(ctx, contract.ReportRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.reportSvc.BuildReport(ctx, contract.ReportRequest{
		ProjectID:      testProject,
		ForecastMethod: "crystal_ball",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
