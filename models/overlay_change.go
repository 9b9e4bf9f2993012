package models

type OverlayKind string

const (
	OverlayMarkup      OverlayKind = "markup"
	OverlayHospitality OverlayKind = "hospitality"
)

// OverlayChange describes an admin mutation that may change resolution
// results for every ticket under Scope.
type OverlayChange struct {
	Kind   OverlayKind `json:"kind"`
	Action string      `json:"action"`
	Level  Level       `json:"level"`
	Scope  ScopeTuple  `json:"scope"`
}
