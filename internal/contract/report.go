package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRequest selects the project, evaluation date and presentation options
// for a cost control report or project roll-up.
type ReportRequest struct {
	ProjectID       string
	AsOf            time.Time
	ForecastMethod  string // defaults to actual_plus_remaining
	IncludeReserves bool
	Currency        string // defaults to the project root node currency
}

// ReportLine is one row of the nine-column cost control report.
type ReportLine struct {
	AccountCode string
	Description string
	PV          decimal.Decimal
	PhysicalPct decimal.Decimal
	EV          decimal.Decimal
	AC          decimal.Decimal
	CV          decimal.Decimal
	SV          decimal.Decimal
	CPI         decimal.Decimal
	EAC         decimal.Decimal
}

// CostReport is the assembled report: one line per control account plus a
// total line recomputed from the summed base figures.
type CostReport struct {
	ProjectID string
	AsOf      time.Time
	Currency  string
	Method    string
	Lines     []ReportLine
	Total     ReportLine
}

// ProjectEVMSummary is the project-level earned-value roll-up. TCPI is nil
// when BAC equals AC.
type ProjectEVMSummary struct {
	ProjectID    string
	AsOf         time.Time
	Currency     string
	AccountCount int
	PV           decimal.Decimal
	EV           decimal.Decimal
	AC           decimal.Decimal
	BAC          decimal.Decimal
	EAC          decimal.Decimal
	ETC          decimal.Decimal
	CV           decimal.Decimal
	SV           decimal.Decimal
	VAC          decimal.Decimal
	CPI          decimal.Decimal
	SPI          decimal.Decimal
	TCPI         *decimal.Decimal
}
