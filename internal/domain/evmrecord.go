package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EVMRecord is a stored earned-value snapshot, one per control account and
// data date. Only the base figures are stored; variances and indices are
// derived so a record can never disagree with its own inputs.
type EVMRecord struct {
	ID               string
	ControlAccountID string
	DataDate         time.Time
	PV               decimal.Decimal
	EV               decimal.Decimal
	AC               decimal.Decimal
	BAC              decimal.Decimal
	EAC              decimal.Decimal
	ETC              decimal.Decimal
	ForecastMethod   ForecastMethod
	Status           AccountStatus
	IsBaseline       bool
	IsApproved       bool
	CreatedAt        time.Time
}

// CV is cost variance: EV − AC.
func (r *EVMRecord) CV() decimal.Decimal { return r.EV.Sub(r.AC) }

// SV is schedule variance: EV − PV.
func (r *EVMRecord) SV() decimal.Decimal { return r.EV.Sub(r.PV) }

// VAC is variance at completion: BAC − EAC.
func (r *EVMRecord) VAC() decimal.Decimal { return r.BAC.Sub(r.EAC) }

// CPI is EV/AC rounded to 4 places; zero when AC is zero.
func (r *EVMRecord) CPI() decimal.Decimal { return SafeIndex(r.EV, r.AC) }

// SPI is EV/PV rounded to 4 places; zero when PV is zero.
func (r *EVMRecord) SPI() decimal.Decimal { return SafeIndex(r.EV, r.PV) }

// TCPI is (BAC−EV)/(BAC−AC), nil when BAC equals AC (undefined, not an error).
func (r *EVMRecord) TCPI() *decimal.Decimal {
	denom := r.BAC.Sub(r.AC)
	if denom.IsZero() {
		return nil
	}
	v := r.BAC.Sub(r.EV).DivRound(denom, 4)
	return &v
}

// SafeIndex divides num by denom rounded to 4 places, returning zero when the
// denominator is zero. This is the fixed division-by-zero convention for
// performance indices.
func SafeIndex(num, denom decimal.Decimal) decimal.Decimal {
	if denom.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(denom, 4)
}

// ExchangeRate is a dated conversion rate between two currencies. Lookup is
// by nearest rate on or before the evaluation date.
type ExchangeRate struct {
	ID           string
	CurrencyFrom string
	CurrencyTo   string
	Date         time.Time
	Rate         decimal.Decimal
	IsOfficial   bool
	CreatedAt    time.Time
}
