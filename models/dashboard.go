package models

// DashboardStats summarises the active overlay configuration for the admin UI.
type DashboardStats struct {
	MarkupRulesByLevel        map[Level]int `json:"markup_rules_by_level"`
	AssignmentsByLevel        map[Level]int `json:"hospitality_assignments_by_level"`
	ActiveHospitalities       int           `json:"active_hospitalities"`
	LegacyTicketMarkups       int           `json:"legacy_ticket_markups"`
	LegacyTicketHospitalities int           `json:"legacy_ticket_hospitalities"`
}
