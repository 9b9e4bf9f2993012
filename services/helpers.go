package services

import (
	"fmt"
	"strings"

	"github.com/Dosada05/ticket-overlays/models"
)

// validateTicketContext rejects contexts that cannot be resolved. A missing
// tournament or team is fine, a missing sport, event or ticket is not.
func validateTicketContext(tc models.TicketContext) (models.ScopeTuple, error) {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(tc.SportType) == "" {
		missing = append(missing, "sport_type")
	}
	if strings.TrimSpace(tc.EventID) == "" {
		missing = append(missing, "event_id")
	}
	if strings.TrimSpace(tc.TicketID) == "" {
		missing = append(missing, "ticket_id")
	}
	if len(missing) > 0 {
		return models.ScopeTuple{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return tc.Scope(), nil
}

func ruleIDs(rules []models.MarkupRule) []int64 {
	ids := make([]int64, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
