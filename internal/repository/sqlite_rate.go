package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
)

// SQLiteExchangeRateRepo implements ExchangeRateRepo using a SQLite database.
// It also satisfies currency.RateSource.
type SQLiteExchangeRateRepo struct {
	db db.DBTX
}

// NewSQLiteExchangeRateRepo creates a new SQLiteExchangeRateRepo.
func NewSQLiteExchangeRateRepo(db db.DBTX) *SQLiteExchangeRateRepo {
	return &SQLiteExchangeRateRepo{db: db}
}

func (r *SQLiteExchangeRateRepo) Create(ctx context.Context, rate *domain.ExchangeRate) error {
	query := `INSERT INTO exchange_rates (id, currency_from, currency_to, rate_date, rate, is_official, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rate.ID,
		rate.CurrencyFrom,
		rate.CurrencyTo,
		rate.Date.Format(dateLayout),
		rate.Rate.String(),
		boolToInt(rate.IsOfficial),
		rate.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting exchange rate: %w", err)
	}
	return nil
}

// Nearest returns the most recent rate for the pair dated on or before asOf
// and no earlier than notBefore. Official rates win a same-day tie.
func (r *SQLiteExchangeRateRepo) Nearest(ctx context.Context, from, to string, asOf, notBefore time.Time) (*domain.ExchangeRate, error) {
	query := `SELECT id, currency_from, currency_to, rate_date, rate, is_official, created_at
		FROM exchange_rates
		WHERE currency_from = ? AND currency_to = ? AND rate_date <= ? AND rate_date >= ?
		ORDER BY rate_date DESC, is_official DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query,
		from, to, asOf.Format(dateLayout), notBefore.Format(dateLayout))

	var rate domain.ExchangeRate
	var dateStr, rateStr, createdAtStr string
	var officialInt int
	err := row.Scan(&rate.ID, &rate.CurrencyFrom, &rate.CurrencyTo, &dateStr, &rateStr, &officialInt, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("exchange rate %s/%s: %w", from, to, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning exchange rate: %w", err)
	}
	rate.IsOfficial = intToBool(officialInt)
	if rate.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("parsing rate date: %w", err)
	}
	if rate.Rate, err = parseDecimal(rateStr); err != nil {
		return nil, fmt.Errorf("parsing rate: %w", err)
	}
	if rate.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &rate, nil
}
