package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/rates"
)

func newTestCurrencyService(t *testing.T, provider *fakeProvider, currencies ...models.Currency) CurrencyService {
	t.Helper()
	repo := &fakeCurrencyRepo{currencies: currencies}
	return NewCurrencyService(repo, provider, rates.NewMemoryCache(), time.Minute, discardLogger())
}

func TestConvert_LiveRate(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{"EUR:USD": dec(t, "1.1617")}}
	svc := newTestCurrencyService(t, provider)

	got := svc.Convert(context.Background(), dec(t, "100"), "EUR", "USD")

	assert.True(t, got.HasConversion)
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.Amount.Equal(dec(t, "116.17")), "got %s", got.Amount)
	assert.True(t, got.Rate.Equal(dec(t, "1.1617")))
	assert.True(t, got.OriginalAmount.Equal(dec(t, "100")))
	assert.Equal(t, "EUR", got.OriginalCurrency)
}

func TestConvert_RoundsToCents(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{"USD:GBP": dec(t, "0.78321")}}
	svc := newTestCurrencyService(t, provider)

	got := svc.Convert(context.Background(), dec(t, "10"), "usd", " gbp ")
	assert.True(t, got.HasConversion)
	assert.Equal(t, "GBP", got.Currency)
	assert.Equal(t, "7.83", got.Amount.StringFixed(2))
}

func TestConvert_IdentityNeedsNoLookup(t *testing.T) {
	provider := &fakeProvider{err: errors.New("must not be called")}
	svc := newTestCurrencyService(t, provider)

	got := svc.Convert(context.Background(), dec(t, "100"), "EUR", "EUR")

	assert.True(t, got.HasConversion)
	assert.Equal(t, "EUR", got.Currency)
	assert.True(t, got.Amount.Equal(dec(t, "100")))
	assert.True(t, got.Rate.Equal(decimal.NewFromInt(1)))
	assert.Zero(t, provider.callCount())
}

func TestConvert_FailsOpen(t *testing.T) {
	provider := &fakeProvider{err: rates.ErrRateUnavailable}
	svc := newTestCurrencyService(t, provider)

	got := svc.Convert(context.Background(), dec(t, "100"), "EUR", "USD")

	assert.False(t, got.HasConversion)
	assert.Equal(t, "EUR", got.Currency)
	assert.True(t, got.Amount.Equal(dec(t, "100")))
	assert.Equal(t, "EUR", got.OriginalCurrency)
}

func TestConvert_CachesRate(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{"USD:EUR": dec(t, "0.9")}}
	svc := newTestCurrencyService(t, provider)

	for i := 0; i < 5; i++ {
		got := svc.Convert(context.Background(), dec(t, "10"), "USD", "EUR")
		require.True(t, got.HasConversion)
		assert.True(t, got.Amount.Equal(dec(t, "9")))
	}
	assert.Equal(t, 1, provider.callCount())
}

func TestConvert_FailureIsNotCached(t *testing.T) {
	provider := &fakeProvider{err: rates.ErrRateUnavailable, rates: map[string]decimal.Decimal{"USD:EUR": dec(t, "0.9")}}
	svc := newTestCurrencyService(t, provider)

	assert.False(t, svc.Convert(context.Background(), dec(t, "10"), "USD", "EUR").HasConversion)

	provider.err = nil
	assert.True(t, svc.Convert(context.Background(), dec(t, "10"), "USD", "EUR").HasConversion)
	assert.Equal(t, 2, provider.callCount())
}

func TestConvert_ConcurrentMissesShareOneFetch(t *testing.T) {
	provider := &fakeProvider{
		rates: map[string]decimal.Decimal{"USD:JPY": dec(t, "150")},
		gate:  make(chan struct{}),
	}
	svc := newTestCurrencyService(t, provider)

	const callers = 20
	results := make([]models.ConversionResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Convert(context.Background(), dec(t, "2"), "USD", "JPY")
		}(i)
	}

	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, 5*time.Millisecond)
	close(provider.gate)
	wg.Wait()

	assert.Equal(t, 1, provider.callCount())
	for _, r := range results {
		assert.True(t, r.HasConversion)
		assert.True(t, r.Amount.Equal(dec(t, "300")))
	}
}

func TestConvert_CancelledCallerDoesNotPoisonOthers(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{"USD:EUR": dec(t, "0.5")}}
	svc := newTestCurrencyService(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := svc.Convert(ctx, dec(t, "10"), "USD", "EUR")
	assert.True(t, got.HasConversion)
	assert.True(t, got.Amount.Equal(dec(t, "5")))
}

func TestDefaultCurrency(t *testing.T) {
	svc := newTestCurrencyService(t, &fakeProvider{},
		models.Currency{Code: "usd", IsActive: true},
		models.Currency{Code: "eur", IsActive: true, IsDefault: true},
	)
	code, err := svc.DefaultCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)

	none := newTestCurrencyService(t, &fakeProvider{})
	code, err = none.DefaultCurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BaseCurrency, code)
}

func TestListCurrencies(t *testing.T) {
	empty := newTestCurrencyService(t, &fakeProvider{})
	list, err := empty.ListCurrencies(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	repo := &fakeCurrencyRepo{err: errors.New("db down")}
	broken := NewCurrencyService(repo, &fakeProvider{}, nil, 0, discardLogger())
	_, err = broken.ListCurrencies(context.Background())
	assert.Error(t, err)
}

func TestWarmUp(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"USD:EUR": dec(t, "0.9"),
		"USD:GBP": dec(t, "0.8"),
	}}
	svc := newTestCurrencyService(t, provider,
		models.Currency{Code: "USD", IsActive: true},
		models.Currency{Code: "EUR", IsActive: true},
		models.Currency{Code: "GBP", IsActive: true},
		models.Currency{Code: "CHF", IsActive: true},
	)

	require.NoError(t, svc.WarmUp(context.Background()))
	// USD is skipped, CHF fails and is retried on demand.
	assert.Equal(t, 3, provider.callCount())

	got := svc.Convert(context.Background(), dec(t, "10"), "USD", "EUR")
	assert.True(t, got.HasConversion)
	assert.Equal(t, 3, provider.callCount())
}
