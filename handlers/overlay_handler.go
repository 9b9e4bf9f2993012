package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/services"
)

// OverlayHandler serves the batch read API used by ticket listings and the cart.
type OverlayHandler struct {
	resolver services.ResolutionService
}

func NewOverlayHandler(resolver services.ResolutionService) *OverlayHandler {
	return &OverlayHandler{resolver: resolver}
}

func resolveRequestFromQuery(r *http.Request, include services.Include) services.ResolveRequest {
	q := r.URL.Query()
	return services.ResolveRequest{
		EventID:      chi.URLParam(r, "event_id"),
		TicketIDs:    splitList(q.Get("ticket_ids")),
		SportType:    q.Get("sport_type"),
		TournamentID: q.Get("tournament_id"),
		TeamID:       q.Get("team_id"),
		Currency:     q.Get("currency"),
		Include:      include,
	}
}

// GET /events/{event_id}/effective-markups?sport_type=&tournament_id=&team_id=&ticket_ids=a,b[&currency=EUR]
func (h *OverlayHandler) GetEffectiveMarkups(w http.ResponseWriter, r *http.Request) {
	req := resolveRequestFromQuery(r, services.IncludeMarkup)
	overlays, err := h.resolver.ResolveForTickets(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	markups := make(map[string]*models.EffectiveMarkup, len(overlays))
	for ticketID, overlay := range overlays {
		markups[ticketID] = overlay.Markup
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"event_id": req.EventID,
		"markups":  markups,
	})
}

// GET /events/{event_id}/effective-hospitalities?sport_type=&tournament_id=&team_id=&ticket_ids=a,b
func (h *OverlayHandler) GetEffectiveHospitalities(w http.ResponseWriter, r *http.Request) {
	req := resolveRequestFromQuery(r, services.IncludeHospitalities)
	req.Currency = ""
	overlays, err := h.resolver.ResolveForTickets(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	hospitalities := make(map[string][]models.ResolvedHospitality, len(overlays))
	for ticketID, overlay := range overlays {
		hospitalities[ticketID] = overlay.Hospitalities
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"hospitalities": hospitalities,
	})
}

// GetEffectiveOverlays returns both overlays per ticket in one response.
func (h *OverlayHandler) GetEffectiveOverlays(w http.ResponseWriter, r *http.Request) {
	req := resolveRequestFromQuery(r, services.IncludeAll)
	overlays, err := h.resolver.ResolveForTickets(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"event_id": req.EventID,
		"tickets":  overlays,
	})
}
