package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/ticket-overlays/metrics"
	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/repositories"
)

type MarkupService interface {
	// ResolveMarkup returns the single markup that applies to the ticket, or
	// nil when none does. A legacy per-ticket row always wins; otherwise the
	// first active rule found walking from ticket level up to sport level.
	ResolveMarkup(ctx context.Context, tc models.TicketContext) (*models.EffectiveMarkup, error)
	// GetLegacyMarkup reads the legacy table only. eventID may be empty.
	GetLegacyMarkup(ctx context.Context, ticketID, eventID string) (*models.TicketMarkup, error)
}

type markupService struct {
	legacyRepo repositories.LegacyRepository
	ruleRepo   repositories.MarkupRuleRepository
	logger     *slog.Logger
}

func NewMarkupService(legacyRepo repositories.LegacyRepository, ruleRepo repositories.MarkupRuleRepository, logger *slog.Logger) MarkupService {
	return &markupService{
		legacyRepo: legacyRepo,
		ruleRepo:   ruleRepo,
		logger:     logger,
	}
}

func (s *markupService) ResolveMarkup(ctx context.Context, tc models.TicketContext) (*models.EffectiveMarkup, error) {
	scope, err := validateTicketContext(tc)
	if err != nil {
		return nil, err
	}
	eventID, ticketID := *scope.EventID, *scope.TicketID

	legacy, err := s.legacyRepo.GetTicketMarkup(ctx, eventID, ticketID)
	switch {
	case err == nil:
		metrics.MarkupResolutions.WithLabelValues(string(models.SourceLegacy), string(models.LevelTicket)).Inc()
		return models.EffectiveFromLegacy(*legacy), nil
	case !errors.Is(err, repositories.ErrTicketMarkupNotFound):
		return nil, fmt.Errorf("failed to load legacy markup (event: %s, ticket: %s): %w", eventID, ticketID, err)
	}

	// От самого точного уровня к самому общему, первый найденный выигрывает.
	for i := len(models.Levels) - 1; i >= 0; i-- {
		level := models.Levels[i]
		rules, err := s.ruleRepo.FindActiveAtLevel(ctx, scope, level)
		if err != nil {
			return nil, fmt.Errorf("failed to probe markup rules (ticket: %s): %w", ticketID, err)
		}
		switch len(rules) {
		case 0:
			continue
		case 1:
			metrics.MarkupResolutions.WithLabelValues(string(models.SourceMarkupRules), string(level)).Inc()
			return models.EffectiveFromRule(rules[0]), nil
		default:
			metrics.IntegrityErrors.WithLabelValues("markup_rules", string(level)).Inc()
			s.logger.ErrorContext(ctx, "ambiguous markup rules",
				slog.String("level", string(level)),
				slog.String("scope", scope.Key()),
				slog.Any("rule_ids", ruleIDs(rules)))
			return nil, fmt.Errorf("%w: %d active markup rules at %s level for scope %s (ids %v)",
				ErrAmbiguousRule, len(rules), level, scope.Key(), ruleIDs(rules))
		}
	}

	metrics.MarkupResolutions.WithLabelValues("none", "none").Inc()
	return nil, nil
}

func (s *markupService) GetLegacyMarkup(ctx context.Context, ticketID, eventID string) (*models.TicketMarkup, error) {
	ticketID = strings.TrimSpace(ticketID)
	eventID = strings.TrimSpace(eventID)
	if ticketID == "" {
		return nil, fmt.Errorf("%w: missing ticket_id", ErrInvalidInput)
	}

	if eventID != "" {
		m, err := s.legacyRepo.GetTicketMarkup(ctx, eventID, ticketID)
		if err != nil {
			if errors.Is(err, repositories.ErrTicketMarkupNotFound) {
				return nil, ErrTicketMarkupNotFound
			}
			return nil, err
		}
		return m, nil
	}

	markups, err := s.legacyRepo.FindTicketMarkupsByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy markup for ticket %s: %w", ticketID, err)
	}
	if len(markups) == 0 {
		return nil, ErrTicketMarkupNotFound
	}
	return &markups[0], nil
}
