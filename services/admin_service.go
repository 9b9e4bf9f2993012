package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/repositories"
	"github.com/Dosada05/ticket-overlays/storage"
)

const (
	actionUpserted    = "upserted"
	actionDeactivated = "deactivated"
)

// Notifier is told about every admin mutation so open listings can re-resolve.
type Notifier interface {
	NotifyOverlayChanged(change models.OverlayChange)
}

type ScopeNames struct {
	Sport      *string
	Tournament *string
	Team       *string
	Event      *string
	Ticket     *string
}

type UpsertMarkupRuleInput struct {
	Scope models.ScopeTuple
	// Level is optional; when given it must agree with Scope.
	Level        models.Level
	MarkupType   models.MarkupType
	MarkupAmount decimal.Decimal
	Names        ScopeNames
}

type UpsertAssignmentInput struct {
	Scope         models.ScopeTuple
	Level         models.Level
	HospitalityID int64
}

type CreateHospitalityInput struct {
	Name        string
	Description string
	SortOrder   int
	IsActive    *bool
}

type AdminService interface {
	UpsertMarkupRule(ctx context.Context, actorID int, input UpsertMarkupRuleInput) (rule *models.MarkupRule, created bool, err error)
	DeactivateMarkupRule(ctx context.Context, actorID int, ruleID int64) (*models.MarkupRule, error)
	ListMarkupRules(ctx context.Context, sportType string) ([]models.MarkupRule, error)

	CreateHospitality(ctx context.Context, actorID int, input CreateHospitalityInput) (*models.Hospitality, error)
	UploadHospitalityIcon(ctx context.Context, actorID int, hospitalityID int64, file io.Reader) (*models.Hospitality, error)

	UpsertHospitalityAssignment(ctx context.Context, actorID int, input UpsertAssignmentInput) (assignment *models.HospitalityAssignment, created bool, err error)
	DeactivateHospitalityAssignment(ctx context.Context, actorID int, assignmentID int64) (*models.HospitalityAssignment, error)
}

type adminService struct {
	ruleRepo        repositories.MarkupRuleRepository
	hospitalityRepo repositories.HospitalityRepository
	assignmentRepo  repositories.HospitalityAssignmentRepository
	icons           storage.FileUploader
	notifier        Notifier
	logger          *slog.Logger
}

func NewAdminService(
	ruleRepo repositories.MarkupRuleRepository,
	hospitalityRepo repositories.HospitalityRepository,
	assignmentRepo repositories.HospitalityAssignmentRepository,
	icons storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		ruleRepo:        ruleRepo,
		hospitalityRepo: hospitalityRepo,
		assignmentRepo:  assignmentRepo,
		icons:           icons,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *adminService) UpsertMarkupRule(ctx context.Context, actorID int, input UpsertMarkupRuleInput) (*models.MarkupRule, bool, error) {
	scope, level, err := validateScope(input.Scope, input.Level)
	if err != nil {
		return nil, false, err
	}
	if err := validateMarkupAmount(input.MarkupType, input.MarkupAmount); err != nil {
		return nil, false, err
	}

	rule := &models.MarkupRule{
		ScopeTuple:     scope,
		Level:          level,
		MarkupType:     input.MarkupType,
		MarkupAmount:   input.MarkupAmount,
		SportName:      input.Names.Sport,
		TournamentName: input.Names.Tournament,
		TeamName:       input.Names.Team,
		EventName:      input.Names.Event,
		TicketName:     input.Names.Ticket,
		CreatedBy:      &actorID,
		UpdatedBy:      &actorID,
	}

	created, err := s.ruleRepo.Upsert(ctx, rule)
	if err != nil {
		if errors.Is(err, repositories.ErrMarkupRuleConflict) {
			return nil, false, ErrRuleConflict
		}
		return nil, false, fmt.Errorf("failed to upsert markup rule for scope %s: %w", scope.Key(), err)
	}

	s.logger.InfoContext(ctx, "markup rule saved",
		slog.Int64("rule_id", rule.ID),
		slog.String("scope", scope.Key()),
		slog.Bool("created", created),
		slog.Int("actor_id", actorID))
	s.notify(models.OverlayMarkup, actionUpserted, rule.Level, rule.ScopeTuple)
	return rule, created, nil
}

func (s *adminService) DeactivateMarkupRule(ctx context.Context, actorID int, ruleID int64) (*models.MarkupRule, error) {
	if ruleID <= 0 {
		return nil, fmt.Errorf("%w: invalid rule id", ErrInvalidInput)
	}
	rule, err := s.ruleRepo.Deactivate(ctx, ruleID, &actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrMarkupRuleNotFound) {
			return nil, ErrMarkupRuleNotFound
		}
		return nil, fmt.Errorf("failed to deactivate markup rule %d: %w", ruleID, err)
	}
	s.notify(models.OverlayMarkup, actionDeactivated, rule.Level, rule.ScopeTuple)
	return rule, nil
}

func (s *adminService) ListMarkupRules(ctx context.Context, sportType string) ([]models.MarkupRule, error) {
	return s.ruleRepo.ListActive(ctx, strings.TrimSpace(sportType))
}

func (s *adminService) CreateHospitality(ctx context.Context, actorID int, input CreateHospitalityInput) (*models.Hospitality, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: hospitality name is required", ErrInvalidInput)
	}
	if len(name) > 255 {
		return nil, fmt.Errorf("%w: hospitality name is too long", ErrInvalidInput)
	}

	item := &models.Hospitality{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		SortOrder:   input.SortOrder,
		IsActive:    true,
		CreatedBy:   &actorID,
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	if err := s.hospitalityRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create hospitality: %w", err)
	}
	return item, nil
}

// allowedIconTypes is keyed by the sniffed content type. SVG is not accepted.
var allowedIconTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

func (s *adminService) UploadHospitalityIcon(ctx context.Context, actorID int, hospitalityID int64, file io.Reader) (*models.Hospitality, error) {
	if s.icons == nil {
		return nil, ErrIconStorageDisabled
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read icon: %w", err)
	}
	head = head[:n]
	// Тип берём из содержимого файла, заголовок клиента не учитываем.
	contentType := http.DetectContentType(head)
	ext, ok := allowedIconTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported icon content type %q", ErrInvalidInput, contentType)
	}
	file = io.MultiReader(bytes.NewReader(head), file)

	item, err := s.hospitalityRepo.GetByID(ctx, hospitalityID)
	if err != nil {
		if errors.Is(err, repositories.ErrHospitalityNotFound) {
			return nil, ErrHospitalityNotFound
		}
		return nil, err
	}
	oldKey := item.IconKey

	key := storage.IconKey(hospitalityID, ext)
	if _, err := s.icons.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload icon for hospitality %d: %w", hospitalityID, err)
	}

	if err := s.hospitalityRepo.UpdateIconKey(ctx, hospitalityID, key, &actorID); err != nil {
		// Не оставляем в бакете файл, на который никто не ссылается.
		if delErr := s.icons.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up orphaned icon", slog.String("key", key), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrHospitalityNotFound) {
			return nil, ErrHospitalityNotFound
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != "" && *oldKey != key {
		if err := s.icons.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous icon", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	item.IconKey = &key
	if u := s.icons.GetPublicURL(key); u != "" {
		item.IconURL = &u
	}
	return item, nil
}

func (s *adminService) UpsertHospitalityAssignment(ctx context.Context, actorID int, input UpsertAssignmentInput) (*models.HospitalityAssignment, bool, error) {
	if input.HospitalityID <= 0 {
		return nil, false, fmt.Errorf("%w: hospitality_id is required", ErrInvalidInput)
	}
	scope, level, err := validateScope(input.Scope, input.Level)
	if err != nil {
		return nil, false, err
	}

	a := &models.HospitalityAssignment{
		ScopeTuple:    scope,
		Level:         level,
		HospitalityID: input.HospitalityID,
		CreatedBy:     &actorID,
		UpdatedBy:     &actorID,
	}
	created, err := s.assignmentRepo.Upsert(ctx, a)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrHospitalityNotFound):
			return nil, false, ErrHospitalityNotFound
		case errors.Is(err, repositories.ErrAssignmentConflict):
			return nil, false, ErrRuleConflict
		}
		return nil, false, fmt.Errorf("failed to upsert hospitality assignment for scope %s: %w", scope.Key(), err)
	}

	s.notify(models.OverlayHospitality, actionUpserted, a.Level, a.ScopeTuple)
	return a, created, nil
}

func (s *adminService) DeactivateHospitalityAssignment(ctx context.Context, actorID int, assignmentID int64) (*models.HospitalityAssignment, error) {
	if assignmentID <= 0 {
		return nil, fmt.Errorf("%w: invalid assignment id", ErrInvalidInput)
	}
	a, err := s.assignmentRepo.Deactivate(ctx, assignmentID, &actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to deactivate assignment %d: %w", assignmentID, err)
	}
	s.notify(models.OverlayHospitality, actionDeactivated, a.Level, a.ScopeTuple)
	return a, nil
}

func (s *adminService) notify(kind models.OverlayKind, action string, level models.Level, scope models.ScopeTuple) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyOverlayChanged(models.OverlayChange{
		Kind:   kind,
		Action: action,
		Level:  level,
		Scope:  scope,
	})
}

// validateScope normalizes the tuple and derives its level. An explicit
// level must match the one implied by the populated fields.
func validateScope(scope models.ScopeTuple, level models.Level) (models.ScopeTuple, models.Level, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return models.ScopeTuple{}, "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	derived := scope.Level()
	if level != "" && level != derived {
		return models.ScopeTuple{}, "", fmt.Errorf("%w: %w (level %q, fields imply %q)",
			ErrInvalidInput, models.ErrScopeLevelMismatch, level, derived)
	}
	return scope, derived, nil
}

func validateMarkupAmount(t models.MarkupType, amount decimal.Decimal) error {
	switch t {
	case models.MarkupPercentage:
		if amount.IsNegative() || amount.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage markup must be between 0 and 100", ErrInvalidInput)
		}
	case models.MarkupFixed:
		if amount.IsNegative() {
			return fmt.Errorf("%w: fixed markup must not be negative", ErrInvalidInput)
		}
		if amount.GreaterThan(maxMarkupAmount) {
			return fmt.Errorf("%w: fixed markup must not exceed %s", ErrInvalidInput, maxMarkupAmount)
		}
	default:
		return fmt.Errorf("%w: markup_type must be fixed or percentage", ErrInvalidInput)
	}
	// markup_amount хранится как NUMERIC(12,4).
	if !amount.Equal(amount.Round(markupAmountScale)) {
		return fmt.Errorf("%w: markup_amount allows at most %d decimal places", ErrInvalidInput, markupAmountScale)
	}
	return nil
}

const markupAmountScale = 4

var maxMarkupAmount = decimal.RequireFromString("99999999.9999")
