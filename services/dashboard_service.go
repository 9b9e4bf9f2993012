package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	ruleRepo        repositories.MarkupRuleRepository
	assignmentRepo  repositories.HospitalityAssignmentRepository
	hospitalityRepo repositories.HospitalityRepository
	legacyRepo      repositories.LegacyRepository
}

func NewDashboardService(
	ruleRepo repositories.MarkupRuleRepository,
	assignmentRepo repositories.HospitalityAssignmentRepository,
	hospitalityRepo repositories.HospitalityRepository,
	legacyRepo repositories.LegacyRepository,
) DashboardService {
	return &dashboardService{
		ruleRepo:        ruleRepo,
		assignmentRepo:  assignmentRepo,
		hospitalityRepo: hospitalityRepo,
		legacyRepo:      legacyRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	rules, err := s.ruleRepo.CountActiveByLevel(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	assignments, err := s.assignmentRepo.CountActiveByLevel(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	items, err := s.hospitalityRepo.ListActive(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	legacyMarkups, legacyHospitalities, err := s.legacyRepo.Counts(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}

	return models.DashboardStats{
		MarkupRulesByLevel:        rules,
		AssignmentsByLevel:        assignments,
		ActiveHospitalities:       len(items),
		LegacyTicketMarkups:       legacyMarkups,
		LegacyTicketHospitalities: legacyHospitalities,
	}, nil
}
