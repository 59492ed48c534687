package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

func TestUnitOfWork_CommitsOnSuccess(t *testing.T) {
	database := testutil.NewTestDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	ctx := context.Background()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRates := repository.NewSQLiteExchangeRateRepo(tx)
		return txRates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.1"), date))
	})
	require.NoError(t, err)

	rates := repository.NewSQLiteExchangeRateRepo(database)
	got, err := rates.Nearest(ctx, "EUR", "USD", date, time.Time{})
	require.NoError(t, err)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("1.1")))
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	database := testutil.NewTestDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	ctx := context.Background()

	boom := errors.New("boom")
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRates := repository.NewSQLiteExchangeRateRepo(tx)
		if err := txRates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.1"), date)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rates := repository.NewSQLiteExchangeRateRepo(database)
	_, err = rates.Nearest(ctx, "EUR", "USD", date, time.Time{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
