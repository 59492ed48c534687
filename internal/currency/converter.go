package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// DefaultLookbackDays bounds how far back a rate lookup may reach from the
// evaluation date before conversion fails.
const DefaultLookbackDays = 90

// RateSource resolves the nearest exchange rate on or before a date but not
// before the lookback floor. Official rates win date ties.
type RateSource interface {
	Nearest(ctx context.Context, from, to string, asOf, notBefore time.Time) (*domain.ExchangeRate, error)
}

// Converter converts monetary amounts between currencies using dated rates.
type Converter struct {
	rates        RateSource
	lookbackDays int
}

// NewConverter creates a Converter. lookbackDays <= 0 selects the default.
func NewConverter(rates RateSource, lookbackDays int) *Converter {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Converter{rates: rates, lookbackDays: lookbackDays}
}

// Convert converts amount from one currency to another at asOf. Identity
// conversions return the amount unchanged. When no direct pair exists the
// reciprocal of the inverse pair is used; with neither available the result
// is ErrCurrencyConversion.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error) {
	if from == "" || to == "" {
		return decimal.Zero, fmt.Errorf("currency codes are required: %w", domain.ErrValidation)
	}
	if from == to {
		return amount, nil
	}

	floor := asOf.AddDate(0, 0, -c.lookbackDays)

	rate, err := c.rates.Nearest(ctx, from, to, asOf, floor)
	if err == nil {
		return amount.Mul(rate.Rate).Round(2), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, err
	}

	inverse, err := c.rates.Nearest(ctx, to, from, asOf, floor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%s→%s on or before %s (lookback %dd): %w",
				from, to, asOf.Format("2006-01-02"), c.lookbackDays, domain.ErrCurrencyConversion)
		}
		return decimal.Zero, err
	}
	if inverse.Rate.IsZero() {
		return decimal.Zero, fmt.Errorf("%s→%s inverse rate is zero: %w", from, to, domain.ErrCurrencyConversion)
	}
	return amount.DivRound(inverse.Rate, 2), nil
}
