package currency

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
	"github.com/cayaqui/costcontrol/internal/testutil"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestConvert_Identity(t *testing.T) {
	conv := NewConverter(repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t)), 0)

	out, err := conv.Convert(context.Background(), decimal.NewFromInt(1234), "USD", "USD", date("2026-03-01"))
	require.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromInt(1234)))
}

func TestConvert_DirectRate(t *testing.T) {
	ctx := context.Background()
	rates := repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t))
	conv := NewConverter(rates, 0)

	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.10"), date("2026-03-01"))))

	out, err := conv.Convert(ctx, decimal.NewFromInt(1000), "EUR", "USD", date("2026-03-15"))
	require.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromInt(1100)), "got %s", out)
}

func TestConvert_NearestOnOrBeforeWins(t *testing.T) {
	ctx := context.Background()
	rates := repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t))
	conv := NewConverter(rates, 0)

	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.05"), date("2026-01-01"))))
	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.10"), date("2026-03-01"))))
	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.20"), date("2026-04-01"))))

	// The April rate is in the future of the evaluation date and must not apply.
	out, err := conv.Convert(ctx, decimal.NewFromInt(100), "EUR", "USD", date("2026-03-15"))
	require.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromInt(110)), "got %s", out)
}

func TestConvert_InverseReciprocalFallback(t *testing.T) {
	ctx := context.Background()
	rates := repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t))
	conv := NewConverter(rates, 0)

	// Only USD→EUR exists; converting EUR→USD must use the reciprocal.
	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("USD", "EUR", decimal.RequireFromString("0.80"), date("2026-03-01"))))

	out, err := conv.Convert(ctx, decimal.NewFromInt(100), "EUR", "USD", date("2026-03-15"))
	require.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromInt(125)), "got %s", out)
}

func TestConvert_LookbackWindowBoundsLookup(t *testing.T) {
	ctx := context.Background()
	rates := repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t))
	conv := NewConverter(rates, 30)

	require.NoError(t, rates.Create(ctx, testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.10"), date("2026-01-01"))))

	// The only rate is older than the 30-day lookback window.
	_, err := conv.Convert(ctx, decimal.NewFromInt(100), "EUR", "USD", date("2026-06-01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCurrencyConversion)
}

func TestConvert_MissingPairFails(t *testing.T) {
	conv := NewConverter(repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t)), 0)

	_, err := conv.Convert(context.Background(), decimal.NewFromInt(100), "GBP", "JPY", date("2026-03-15"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCurrencyConversion)
}

func TestConvert_OfficialRateWinsDateTie(t *testing.T) {
	ctx := context.Background()
	rates := repository.NewSQLiteExchangeRateRepo(testutil.NewTestDB(t))
	conv := NewConverter(rates, 0)

	unofficial := testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.15"), date("2026-03-01"))
	official := testutil.NewTestRate("EUR", "USD", decimal.RequireFromString("1.10"), date("2026-03-01"))
	official.IsOfficial = true
	require.NoError(t, rates.Create(ctx, unofficial))
	require.NoError(t, rates.Create(ctx, official))

	out, err := conv.Convert(ctx, decimal.NewFromInt(100), "EUR", "USD", date("2026-03-01"))
	require.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromInt(110)), "got %s", out)
}
