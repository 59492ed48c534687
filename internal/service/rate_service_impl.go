package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/currency"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type rateService struct {
	rates repository.ExchangeRateRepo
	conv  *currency.Converter
}

func NewRateService(rates repository.ExchangeRateRepo, conv *currency.Converter) RateService {
	return &rateService{rates: rates, conv: conv}
}

func (s *rateService) AddRate(ctx context.Context, r *domain.ExchangeRate) error {
	if r.CurrencyFrom == "" || r.CurrencyTo == "" {
		return fmt.Errorf("currency codes are required: %w", domain.ErrValidation)
	}
	if r.CurrencyFrom == r.CurrencyTo {
		return fmt.Errorf("identity rate %s/%s is implicit: %w", r.CurrencyFrom, r.CurrencyTo, domain.ErrValidation)
	}
	if r.Rate.Sign() <= 0 {
		return fmt.Errorf("rate must be positive: %w", domain.ErrValidation)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("rate date is required: %w", domain.ErrValidation)
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()
	return s.rates.Create(ctx, r)
}

func (s *rateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error) {
	return s.conv.Convert(ctx, amount, from, to, asOf)
}
