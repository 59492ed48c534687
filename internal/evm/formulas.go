package evm

import (
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// Input carries the base figures for one control account at a data date.
// All amounts are in the same currency; conversion happens before Compute.
type Input struct {
	PV              decimal.Decimal // cumulative planned value at the data date
	AC              decimal.Decimal // cumulative actual cost
	BAC             decimal.Decimal // budget at completion, reserves excluded
	PercentComplete decimal.Decimal // recorded physical progress [0,100]
}

// Metrics is the full earned-value result set. TCPI is nil when BAC equals
// AC, where the formula is undefined; this is a reported convention, not an
// error.
type Metrics struct {
	PV   decimal.Decimal
	EV   decimal.Decimal
	AC   decimal.Decimal
	BAC  decimal.Decimal
	CV   decimal.Decimal
	SV   decimal.Decimal
	CPI  decimal.Decimal
	SPI  decimal.Decimal
	EAC  decimal.Decimal
	ETC  decimal.Decimal
	VAC  decimal.Decimal
	TCPI *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Compute evaluates the EVM formula set for one control account.
//
// EV is BAC scaled by recorded physical progress, never derived from cost.
// Division-by-zero conventions: CPI and SPI are zero when their denominator
// is zero; TCPI is nil when BAC = AC. Forecast methods with a zero
// denominator fall back to ActualPlusRemaining.
func Compute(in Input, method domain.ForecastMethod) Metrics {
	ev := in.BAC.Mul(in.PercentComplete).Div(hundred).Round(2)

	m := Metrics{
		PV:  in.PV,
		EV:  ev,
		AC:  in.AC,
		BAC: in.BAC,
		CV:  ev.Sub(in.AC),
		SV:  ev.Sub(in.PV),
		CPI: domain.SafeIndex(ev, in.AC),
		SPI: domain.SafeIndex(ev, in.PV),
	}

	m.EAC = forecast(m, method)
	m.ETC = m.EAC.Sub(m.AC)
	m.VAC = m.BAC.Sub(m.EAC)

	tcpiDenom := m.BAC.Sub(m.AC)
	if !tcpiDenom.IsZero() {
		v := m.BAC.Sub(m.EV).DivRound(tcpiDenom, 4)
		m.TCPI = &v
	}

	return m
}

func forecast(m Metrics, method domain.ForecastMethod) decimal.Decimal {
	remaining := m.BAC.Sub(m.EV)

	switch method {
	case domain.ForecastCPIAdjusted:
		if m.CPI.IsZero() {
			break
		}
		return m.BAC.DivRound(m.CPI, 2)
	case domain.ForecastCPITimesSPIAdjusted:
		denom := m.CPI.Mul(m.SPI)
		if denom.IsZero() {
			break
		}
		return m.AC.Add(remaining.DivRound(denom, 2))
	}

	// ActualPlusRemaining, and the fallback for zero-denominator forecasts.
	return m.AC.Add(remaining)
}
