package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/ticket-overlays/services"
)

// LegacyHandler keeps the per-ticket reads older clients still call.
type LegacyHandler struct {
	markupService      services.MarkupService
	hospitalityService services.HospitalityService
}

func NewLegacyHandler(markupService services.MarkupService, hospitalityService services.HospitalityService) *LegacyHandler {
	return &LegacyHandler{
		markupService:      markupService,
		hospitalityService: hospitalityService,
	}
}

// GET /tickets/{ticket_id}/markup[?event_id=]
// Отсутствие строки не ошибка: отдаём markup = null.
func (h *LegacyHandler) GetTicketMarkup(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	eventID := r.URL.Query().Get("event_id")

	markup, err := h.markupService.GetLegacyMarkup(r.Context(), ticketID, eventID)
	if err != nil && !errors.Is(err, services.ErrTicketMarkupNotFound) {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, r, http.StatusOK, jsonResponse{
		"ticket_id": ticketID,
		"markup":    markup,
	})
}

// GET /events/{event_id}/hospitalities
func (h *LegacyHandler) GetEventHospitalities(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	byTicket, err := h.hospitalityService.ListLegacyByEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, r, http.StatusOK, jsonResponse{
		"event_id":      eventID,
		"hospitalities": byTicket,
	})
}
