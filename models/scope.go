package models

import (
	"errors"
	"fmt"
	"strings"
)

// Level: уровень области действия правила, от самого общего к самому точному.
type Level string

const (
	LevelSport      Level = "sport"
	LevelTournament Level = "tournament"
	LevelTeam       Level = "team"
	LevelEvent      Level = "event"
	LevelTicket     Level = "ticket"
)

// Levels lists every level from least to most specific.
var Levels = []Level{LevelSport, LevelTournament, LevelTeam, LevelEvent, LevelTicket}

// Rank returns the position of the level in Levels, or -1 for an unknown value.
func (l Level) Rank() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// MoreSpecificThan reports whether l sits deeper in the hierarchy than other.
func (l Level) MoreSpecificThan(other Level) bool {
	return l.Rank() > other.Rank()
}

var (
	ErrScopeSportRequired     = errors.New("sport_type is required")
	ErrScopeTournamentMissing = errors.New("tournament_id is required below tournament level")
	ErrScopeEventMissing      = errors.New("event_id is required at ticket level")
	ErrScopeLevelMismatch     = errors.New("level does not match populated scope fields")
)

// ScopeTuple is the (sport, tournament, team, event, ticket) address an
// overlay row is attached to. Nil pointers are unpopulated fields.
type ScopeTuple struct {
	SportType    string  `json:"sport_type" db:"sport_type"`
	TournamentID *string `json:"tournament_id,omitempty" db:"tournament_id"`
	TeamID       *string `json:"team_id,omitempty" db:"team_id"`
	EventID      *string `json:"event_id,omitempty" db:"event_id"`
	TicketID     *string `json:"ticket_id,omitempty" db:"ticket_id"`
}

// Level returns the most specific populated field of the tuple.
func (s ScopeTuple) Level() Level {
	switch {
	case s.TicketID != nil:
		return LevelTicket
	case s.EventID != nil:
		return LevelEvent
	case s.TeamID != nil:
		return LevelTeam
	case s.TournamentID != nil:
		return LevelTournament
	default:
		return LevelSport
	}
}

// Validate checks that populated fields form a contiguous prefix of the
// hierarchy. team_id is the only field that may be skipped: non-team sports
// legitimately have events and tickets without a team.
func (s ScopeTuple) Validate() error {
	if strings.TrimSpace(s.SportType) == "" {
		return ErrScopeSportRequired
	}
	if s.TicketID != nil && s.EventID == nil {
		return ErrScopeEventMissing
	}
	if (s.TeamID != nil || s.EventID != nil) && s.TournamentID == nil {
		return ErrScopeTournamentMissing
	}
	return nil
}

// AtLevel builds the exact-match probe key for the given level: fields up to
// the level are copied from s, deeper fields are cleared. ok is false when s
// lacks the field that defines the level, in which case no row at that level
// can match.
func (s ScopeTuple) AtLevel(level Level) (probe ScopeTuple, ok bool) {
	probe = ScopeTuple{SportType: s.SportType}
	switch level {
	case LevelSport:
		return probe, true
	case LevelTournament:
		if s.TournamentID == nil {
			return ScopeTuple{}, false
		}
		probe.TournamentID = s.TournamentID
		return probe, true
	case LevelTeam:
		if s.TournamentID == nil || s.TeamID == nil {
			return ScopeTuple{}, false
		}
		probe.TournamentID = s.TournamentID
		probe.TeamID = s.TeamID
		return probe, true
	case LevelEvent:
		if s.EventID == nil {
			return ScopeTuple{}, false
		}
		probe.TournamentID = s.TournamentID
		probe.TeamID = s.TeamID
		probe.EventID = s.EventID
		return probe, true
	case LevelTicket:
		if s.EventID == nil || s.TicketID == nil {
			return ScopeTuple{}, false
		}
		return s, true
	}
	return ScopeTuple{}, false
}

// Key renders the tuple as a stable string, used for advisory locks and logs.
func (s ScopeTuple) Key() string {
	part := func(p *string) string {
		if p == nil {
			return "-"
		}
		return *p
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", s.SportType, part(s.TournamentID), part(s.TeamID), part(s.EventID), part(s.TicketID))
}

// Normalize trims whitespace and turns empty optional fields into nil.
func (s ScopeTuple) Normalize() ScopeTuple {
	return ScopeTuple{
		SportType:    strings.TrimSpace(s.SportType),
		TournamentID: OptionalString(deref(s.TournamentID)),
		TeamID:       OptionalString(deref(s.TeamID)),
		EventID:      OptionalString(deref(s.EventID)),
		TicketID:     OptionalString(deref(s.TicketID)),
	}
}

// TicketContext identifies one ticket and its ancestry for resolution.
type TicketContext struct {
	SportType    string
	TournamentID string
	TeamID       string
	EventID      string
	TicketID     string
}

// Scope converts the context into a fully populated scope tuple.
func (c TicketContext) Scope() ScopeTuple {
	return ScopeTuple{
		SportType:    strings.TrimSpace(c.SportType),
		TournamentID: OptionalString(c.TournamentID),
		TeamID:       OptionalString(c.TeamID),
		EventID:      OptionalString(c.EventID),
		TicketID:     OptionalString(c.TicketID),
	}
}

// OptionalString returns nil for blank input and a pointer to the trimmed value otherwise.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
