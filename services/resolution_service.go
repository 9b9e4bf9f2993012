package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/ticket-overlays/models"
)

const (
	defaultResolveConcurrency = 8
	defaultMaxTickets         = 200
)

// Include selects which overlays the facade resolves. The zero value means all.
type Include uint8

const (
	IncludeMarkup Include = 1 << iota
	IncludeHospitalities

	IncludeAll = IncludeMarkup | IncludeHospitalities
)

func (i Include) has(flag Include) bool {
	return i == 0 || i&flag != 0
}

// ResolveRequest is one batch of tickets from the same event.
type ResolveRequest struct {
	EventID      string
	TicketIDs    []string
	SportType    string
	TournamentID string
	TeamID       string
	// Currency, when set, converts fixed markups for display.
	Currency string
	Include  Include
}

type ResolutionConfig struct {
	Concurrency int
	MaxTickets  int
}

type ResolutionService interface {
	// ResolveForTickets returns one overlay per requested ticket id. Every id
	// is present in the result even when nothing applies to it.
	ResolveForTickets(ctx context.Context, req ResolveRequest) (map[string]models.TicketOverlay, error)
}

type resolutionService struct {
	markups       MarkupService
	hospitalities HospitalityService
	currencies    CurrencyService
	concurrency   int
	maxTickets    int
	logger        *slog.Logger
}

func NewResolutionService(
	markups MarkupService,
	hospitalities HospitalityService,
	currencies CurrencyService,
	cfg ResolutionConfig,
	logger *slog.Logger,
) ResolutionService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultResolveConcurrency
	}
	if cfg.MaxTickets <= 0 {
		cfg.MaxTickets = defaultMaxTickets
	}
	return &resolutionService{
		markups:       markups,
		hospitalities: hospitalities,
		currencies:    currencies,
		concurrency:   cfg.Concurrency,
		maxTickets:    cfg.MaxTickets,
		logger:        logger,
	}
}

func (s *resolutionService) ResolveForTickets(ctx context.Context, req ResolveRequest) (map[string]models.TicketOverlay, error) {
	ticketIDs := uniqueTicketIDs(req.TicketIDs)
	switch {
	case strings.TrimSpace(req.EventID) == "":
		return nil, fmt.Errorf("%w: missing event_id", ErrInvalidInput)
	case strings.TrimSpace(req.SportType) == "":
		return nil, fmt.Errorf("%w: missing sport_type", ErrInvalidInput)
	case len(ticketIDs) == 0:
		return nil, fmt.Errorf("%w: missing ticket_ids", ErrInvalidInput)
	case len(ticketIDs) > s.maxTickets:
		return nil, fmt.Errorf("%w: %d ticket_ids requested, at most %d allowed", ErrInvalidInput, len(ticketIDs), s.maxTickets)
	}

	result := make(map[string]models.TicketOverlay, len(ticketIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, ticketID := range ticketIDs {
		ticketID := ticketID
		g.Go(func() error {
			overlay, err := s.resolveOne(gctx, req, ticketID)
			if err != nil {
				return fmt.Errorf("ticket %s: %w", ticketID, err)
			}
			mu.Lock()
			result[ticketID] = overlay
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "batch resolution failed",
			slog.String("event_id", req.EventID),
			slog.Int("tickets", len(ticketIDs)),
			slog.Any("error", err))
		return nil, err
	}
	return result, nil
}

func (s *resolutionService) resolveOne(ctx context.Context, req ResolveRequest, ticketID string) (models.TicketOverlay, error) {
	tc := models.TicketContext{
		SportType:    req.SportType,
		TournamentID: req.TournamentID,
		TeamID:       req.TeamID,
		EventID:      req.EventID,
		TicketID:     ticketID,
	}
	overlay := models.TicketOverlay{Hospitalities: []models.ResolvedHospitality{}}

	if req.Include.has(IncludeMarkup) {
		markup, err := s.markups.ResolveMarkup(ctx, tc)
		if err != nil {
			return models.TicketOverlay{}, err
		}
		if markup != nil && markup.MarkupType == models.MarkupFixed && strings.TrimSpace(req.Currency) != "" && s.currencies != nil {
			conv := s.currencies.Convert(ctx, markup.MarkupAmount, models.BaseCurrency, req.Currency)
			markup.Converted = &conv
		}
		overlay.Markup = markup
	}

	if req.Include.has(IncludeHospitalities) {
		items, err := s.hospitalities.ResolveHospitalities(ctx, tc)
		if err != nil {
			return models.TicketOverlay{}, err
		}
		if items != nil {
			overlay.Hospitalities = items
		}
	}

	return overlay, nil
}

// uniqueTicketIDs trims ids and drops blanks and repeats, keeping request order.
func uniqueTicketIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
