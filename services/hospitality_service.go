package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Dosada05/ticket-overlays/metrics"
	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/repositories"
	"github.com/Dosada05/ticket-overlays/storage"
)

type HospitalityService interface {
	// ResolveHospitalities returns the union of every entitlement visible to
	// the ticket from any level plus the legacy per-ticket links, one entry
	// per hospitality id, annotated with the most specific level it was found at.
	ResolveHospitalities(ctx context.Context, tc models.TicketContext) ([]models.ResolvedHospitality, error)
	// ListLegacyByEvent returns the legacy ticket links of an event keyed by ticket id.
	ListLegacyByEvent(ctx context.Context, eventID string) (map[string][]models.ResolvedHospitality, error)
}

type hospitalityService struct {
	assignmentRepo repositories.HospitalityAssignmentRepository
	legacyRepo     repositories.LegacyRepository
	icons          storage.FileUploader // nil when object storage is not configured
	logger         *slog.Logger
}

func NewHospitalityService(
	assignmentRepo repositories.HospitalityAssignmentRepository,
	legacyRepo repositories.LegacyRepository,
	icons storage.FileUploader,
	logger *slog.Logger,
) HospitalityService {
	return &hospitalityService{
		assignmentRepo: assignmentRepo,
		legacyRepo:     legacyRepo,
		icons:          icons,
		logger:         logger,
	}
}

func (s *hospitalityService) ResolveHospitalities(ctx context.Context, tc models.TicketContext) ([]models.ResolvedHospitality, error) {
	scope, err := validateTicketContext(tc)
	if err != nil {
		return nil, err
	}

	found := make(map[int64]models.ResolvedHospitality)

	// Идём от общего к точному: более глубокий уровень перезаписывает аннотацию.
	for _, level := range models.Levels {
		items, err := s.assignmentRepo.FindActiveAtLevel(ctx, scope, level)
		if err != nil {
			return nil, fmt.Errorf("failed to probe hospitality assignments (ticket: %s): %w", *scope.TicketID, err)
		}
		atLevel := make(map[int64]struct{}, len(items))
		for _, item := range items {
			if _, dup := atLevel[item.HospitalityID]; dup {
				metrics.IntegrityErrors.WithLabelValues("hospitality_assignments", string(level)).Inc()
				s.logger.ErrorContext(ctx, "duplicate hospitality assignment",
					slog.Int64("hospitality_id", item.HospitalityID),
					slog.String("level", string(level)),
					slog.String("scope", scope.Key()))
				return nil, fmt.Errorf("%w: hospitality %d assigned more than once at %s level for scope %s",
					ErrAmbiguousRule, item.HospitalityID, level, scope.Key())
			}
			atLevel[item.HospitalityID] = struct{}{}
			found[item.HospitalityID] = item
		}
	}

	legacy, err := s.legacyRepo.ListTicketHospitalities(ctx, *scope.EventID, *scope.TicketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy hospitalities (ticket: %s): %w", *scope.TicketID, err)
	}
	for _, item := range legacy {
		// Уже найдено на уровне билета через новую таблицу, оставляем её.
		if existing, ok := found[item.HospitalityID]; ok && existing.Level == models.LevelTicket {
			continue
		}
		found[item.HospitalityID] = item
	}

	result := make([]models.ResolvedHospitality, 0, len(found))
	for _, item := range found {
		result = append(result, s.withIcon(item))
	}
	sortResolved(result)

	metrics.HospitalityResolutions.Inc()
	return result, nil
}

func (s *hospitalityService) ListLegacyByEvent(ctx context.Context, eventID string) (map[string][]models.ResolvedHospitality, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("%w: missing event_id", ErrInvalidInput)
	}

	byTicket, err := s.legacyRepo.ListEventHospitalities(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for ticketID, items := range byTicket {
		for i := range items {
			items[i] = s.withIcon(items[i])
		}
		byTicket[ticketID] = items
	}
	return byTicket, nil
}

func (s *hospitalityService) withIcon(item models.ResolvedHospitality) models.ResolvedHospitality {
	if s.icons == nil || item.IconKey == nil || *item.IconKey == "" {
		return item
	}
	if u := s.icons.GetPublicURL(*item.IconKey); u != "" {
		item.IconURL = &u
	}
	return item
}

// sortResolved orders entitlements most specific level first, then by the
// admin sort order, then by id so repeated calls return identical output.
func sortResolved(items []models.ResolvedHospitality) {
	sort.Slice(items, func(i, j int) bool {
		if ri, rj := items[i].Level.Rank(), items[j].Level.Rank(); ri != rj {
			return ri > rj
		}
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].HospitalityID < items[j].HospitalityID
	})
}
