package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Dosada05/ticket-overlays/metrics"
	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/rates"
	"github.com/Dosada05/ticket-overlays/repositories"
)

const defaultRateTTL = 5 * time.Minute

type CurrencyService interface {
	// Convert never fails: when no live rate can be obtained the original
	// amount comes back with HasConversion=false.
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) models.ConversionResult
	ListCurrencies(ctx context.Context) ([]models.Currency, error)
	// DefaultCurrency is the display currency used when the buyer has not picked one.
	DefaultCurrency(ctx context.Context) (string, error)
	// WarmUp fetches USD -> code for every active currency into the cache.
	WarmUp(ctx context.Context) error
}

type currencyService struct {
	currencyRepo repositories.CurrencyRepository
	provider     rates.Provider
	cache        rates.Cache
	ttl          time.Duration
	inflight     singleflight.Group
	logger       *slog.Logger
}

func NewCurrencyService(
	currencyRepo repositories.CurrencyRepository,
	provider rates.Provider,
	cache rates.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) CurrencyService {
	if ttl <= 0 {
		ttl = defaultRateTTL
	}
	if cache == nil {
		cache = rates.NewMemoryCache()
	}
	return &currencyService{
		currencyRepo: currencyRepo,
		provider:     provider,
		cache:        cache,
		ttl:          ttl,
		logger:       logger,
	}
}

func normalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *currencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) models.ConversionResult {
	from = normalizeCurrencyCode(from)
	to = normalizeCurrencyCode(to)
	if from == "" {
		from = models.BaseCurrency
	}
	if to == "" {
		to = from
	}

	result := models.ConversionResult{
		Amount:           amount,
		Currency:         from,
		Rate:             decimal.NewFromInt(1),
		OriginalAmount:   amount,
		OriginalCurrency: from,
	}

	if from == to {
		metrics.RateLookups.WithLabelValues("identity").Inc()
		result.HasConversion = true
		return result
	}

	rate, ok := s.lookupRate(ctx, from, to)
	if !ok {
		result.HasConversion = false
		return result
	}

	result.Amount = amount.Mul(rate).Round(2)
	result.Currency = to
	result.Rate = rate
	result.HasConversion = true
	return result
}

// lookupRate reads the cache and falls back to one live fetch per pair no
// matter how many callers miss at the same time.
func (s *currencyService) lookupRate(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	if rate, ok := s.cache.Get(ctx, from, to); ok {
		metrics.RateLookups.WithLabelValues("cache_hit").Inc()
		return rate, true
	}

	// Отмена запроса первого вызывающего не должна ронять остальных ожидающих.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(from+":"+to, func() (interface{}, error) {
		if rate, ok := s.cache.Get(fetchCtx, from, to); ok {
			return rate, nil
		}
		started := time.Now()
		rate, err := s.provider.FetchRate(fetchCtx, from, to)
		metrics.RateFetchDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			return nil, err
		}
		s.cache.Set(fetchCtx, from, to, rate, s.ttl)
		return rate, nil
	})
	if err != nil {
		metrics.RateLookups.WithLabelValues("failed").Inc()
		s.logger.WarnContext(ctx, "exchange rate unavailable, returning unconverted amount",
			slog.String("from", from), slog.String("to", to), slog.Any("error", err))
		return decimal.Zero, false
	}

	metrics.RateLookups.WithLabelValues("fetched").Inc()
	return v.(decimal.Decimal), true
}

func (s *currencyService) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	currencies, err := s.currencyRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	if currencies == nil {
		currencies = []models.Currency{}
	}
	return currencies, nil
}

func (s *currencyService) DefaultCurrency(ctx context.Context) (string, error) {
	c, err := s.currencyRepo.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrCurrencyNotFound) {
			return models.BaseCurrency, nil
		}
		return "", fmt.Errorf("failed to load default currency: %w", err)
	}
	return normalizeCurrencyCode(c.Code), nil
}

func (s *currencyService) WarmUp(ctx context.Context) error {
	currencies, err := s.currencyRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list currencies for rate warm-up: %w", err)
	}

	warmed, failed := 0, 0
	for _, c := range currencies {
		code := normalizeCurrencyCode(c.Code)
		if code == models.BaseCurrency || code == "" {
			continue
		}
		if _, ok := s.lookupRate(ctx, models.BaseCurrency, code); ok {
			warmed++
		} else {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "exchange rates warmed up", slog.Int("warmed", warmed), slog.Int("failed", failed))
	return nil
}
