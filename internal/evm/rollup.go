package evm

import (
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// AccountFigures is one control account's contribution to a project roll-up,
// already normalized to the reporting currency.
type AccountFigures struct {
	ControlAccountID string
	PV               decimal.Decimal
	EV               decimal.Decimal
	AC               decimal.Decimal
	BAC              decimal.Decimal
	EAC              decimal.Decimal
}

// Summary is the project-level roll-up. Base figures are summed across
// accounts; the ratios are recomputed from the sums rather than averaged, so
// small accounts cannot distort the project indices.
type Summary struct {
	PV   decimal.Decimal
	EV   decimal.Decimal
	AC   decimal.Decimal
	BAC  decimal.Decimal
	EAC  decimal.Decimal
	ETC  decimal.Decimal
	CV   decimal.Decimal
	SV   decimal.Decimal
	VAC  decimal.Decimal
	CPI  decimal.Decimal
	SPI  decimal.Decimal
	TCPI *decimal.Decimal
}

// Rollup sums the base figures and rederives every ratio from the totals.
func Rollup(accounts []AccountFigures) Summary {
	var s Summary
	for _, a := range accounts {
		s.PV = s.PV.Add(a.PV)
		s.EV = s.EV.Add(a.EV)
		s.AC = s.AC.Add(a.AC)
		s.BAC = s.BAC.Add(a.BAC)
		s.EAC = s.EAC.Add(a.EAC)
	}

	s.CV = s.EV.Sub(s.AC)
	s.SV = s.EV.Sub(s.PV)
	s.ETC = s.EAC.Sub(s.AC)
	s.VAC = s.BAC.Sub(s.EAC)
	s.CPI = domain.SafeIndex(s.EV, s.AC)
	s.SPI = domain.SafeIndex(s.EV, s.PV)

	denom := s.BAC.Sub(s.AC)
	if !denom.IsZero() {
		v := s.BAC.Sub(s.EV).DivRound(denom, 4)
		s.TCPI = &v
	}

	return s
}
