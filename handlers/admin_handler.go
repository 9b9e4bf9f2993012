package handlers

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Dosada05/ticket-overlays/middleware"
	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/services"
)

const maxIconSize = 2 << 20 // 2MB

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

type scopeRequest struct {
	SportType    string  `json:"sport_type"`
	TournamentID *string `json:"tournament_id"`
	TeamID       *string `json:"team_id"`
	EventID      *string `json:"event_id"`
	TicketID     *string `json:"ticket_id"`
	Level        string  `json:"level"`
}

func (s scopeRequest) scope() models.ScopeTuple {
	return models.ScopeTuple{
		SportType:    s.SportType,
		TournamentID: s.TournamentID,
		TeamID:       s.TeamID,
		EventID:      s.EventID,
		TicketID:     s.TicketID,
	}
}

type upsertMarkupRuleRequest struct {
	scopeRequest
	MarkupType     string          `json:"markup_type"`
	MarkupAmount   decimal.Decimal `json:"markup_amount"`
	SportName      *string         `json:"sport_name"`
	TournamentName *string         `json:"tournament_name"`
	TeamName       *string         `json:"team_name"`
	EventName      *string         `json:"event_name"`
	TicketName     *string         `json:"ticket_name"`
}

type upsertAssignmentRequest struct {
	scopeRequest
	HospitalityID int64 `json:"hospitality_id"`
}

type createHospitalityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return 0, false
	}
	return actorID, true
}

func upsertStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *AdminHandler) UpsertMarkupRule(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req upsertMarkupRuleRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rule, created, err := h.adminService.UpsertMarkupRule(r.Context(), actorID, services.UpsertMarkupRuleInput{
		Scope:        req.scope(),
		Level:        models.Level(req.Level),
		MarkupType:   models.MarkupType(req.MarkupType),
		MarkupAmount: req.MarkupAmount,
		Names: services.ScopeNames{
			Sport:      req.SportName,
			Tournament: req.TournamentName,
			Team:       req.TeamName,
			Event:      req.EventName,
			Ticket:     req.TicketName,
		},
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, upsertStatus(created), jsonResponse{"rule": rule, "created": created})
}

func (h *AdminHandler) DeactivateMarkupRule(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	ruleID, err := getIDFromURL(r, "ruleID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rule, err := h.adminService.DeactivateMarkupRule(r.Context(), actorID, ruleID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"rule": rule})
}

func (h *AdminHandler) ListMarkupRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.adminService.ListMarkupRules(r.Context(), r.URL.Query().Get("sport_type"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"rules": rules})
}

func (h *AdminHandler) CreateHospitality(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createHospitalityRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	item, err := h.adminService.CreateHospitality(r.Context(), actorID, services.CreateHospitalityInput{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, jsonResponse{"hospitality": item})
}

func (h *AdminHandler) UploadHospitalityIcon(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	hospitalityID, err := getIDFromURL(r, "hospitalityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIconSize+1024)
	if err := r.ParseMultipartForm(maxIconSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, _, err := r.FormFile("icon") // имя поля в форме
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get icon file from form: %w", err))
		return
	}
	defer file.Close()

	item, err := h.adminService.UploadHospitalityIcon(r.Context(), actorID, hospitalityID, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"hospitality": item})
}

func (h *AdminHandler) UpsertHospitalityAssignment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req upsertAssignmentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	a, created, err := h.adminService.UpsertHospitalityAssignment(r.Context(), actorID, services.UpsertAssignmentInput{
		Scope:         req.scope(),
		Level:         models.Level(req.Level),
		HospitalityID: req.HospitalityID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, upsertStatus(created), jsonResponse{"assignment": a, "created": created})
}

func (h *AdminHandler) DeactivateHospitalityAssignment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	assignmentID, err := getIDFromURL(r, "assignmentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	a, err := h.adminService.DeactivateHospitalityAssignment(r.Context(), actorID, assignmentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"assignment": a})
}
