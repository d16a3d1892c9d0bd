package campaign

import "time"

// TokenType identifies the kind of a placed token. The set is closed; display
// strings live in a separate lookup so identity stays decoupled from
// presentation.
type TokenType string

const (
	TokenStrategicObjective TokenType = "STRATEGIC_OBJECTIVE"
	TokenFortification      TokenType = "FORTIFICATION"
	TokenResourceNode       TokenType = "RESOURCE_NODE"
	TokenAncientRelic       TokenType = "ANCIENT_RELIC"
	TokenSacredShrine       TokenType = "SACRED_SHRINE"
	TokenForwardOutpost     TokenType = "FORWARD_OUTPOST"
	TokenCustomMarker       TokenType = "CUSTOM_MARKER"
)

// TokenTypes lists every token type in a stable order.
var TokenTypes = []TokenType{
	TokenStrategicObjective,
	TokenFortification,
	TokenResourceNode,
	TokenAncientRelic,
	TokenSacredShrine,
	TokenForwardOutpost,
	TokenCustomMarker,
}

var tokenDisplayNames = map[TokenType]string{
	TokenStrategicObjective: "Strategic Objective",
	TokenFortification:      "Fortification",
	TokenResourceNode:       "Resource Node",
	TokenAncientRelic:       "Ancient Relic",
	TokenSacredShrine:       "Sacred Shrine",
	TokenForwardOutpost:     "Forward Outpost",
	TokenCustomMarker:       "Custom Marker",
}

// DisplayName returns the human-readable name for the token type, or the raw
// identifier for unknown values.
func (t TokenType) DisplayName() string {
	if name, ok := tokenDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// IsValid reports whether t is one of the enumerated token types.
func (t TokenType) IsValid() bool {
	_, ok := tokenDisplayNames[t]
	return ok
}

// TokenTypeFromDisplayName resolves a display string back to its token type.
func TokenTypeFromDisplayName(name string) (TokenType, bool) {
	for t, display := range tokenDisplayNames {
		if display == name {
			return t, true
		}
	}
	return "", false
}

// ResourceNodeData is the payload variant read by resource node effects.
type ResourceNodeData struct {
	// RPPerTurn is the requisition yield per resolution cycle. Zero means
	// the default of 1.
	RPPerTurn int `json:"rp_per_turn,omitempty"`
}

// TokenData is the per-type payload attached to a token. Each variant field
// is meaningful only for the matching token type; Custom stays an open,
// effect-agnostic payload for custom markers and host collaborators.
type TokenData struct {
	ResourceNode *ResourceNodeData `json:"resource_node,omitempty"`
	Custom       map[string]any    `json:"custom,omitempty"`
}

// RPYield returns the per-cycle requisition yield encoded in the payload,
// defaulting to 1 when unset.
func (d TokenData) RPYield() int {
	if d.ResourceNode != nil && d.ResourceNode.RPPerTurn > 0 {
		return d.ResourceNode.RPPerTurn
	}
	return 1
}

// Token is a placeable marker on a hex. ID, PlayerID, Type, and PlacedAt are
// immutable for the life of the token; only the Data payload may be adjusted
// by collaborators after creation. Token IDs are unique across the whole
// campaign and never reused, even after removal.
type Token struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"player_id"`
	Type     TokenType `json:"type"`
	PlacedAt time.Time `json:"placed_at"`
	Data     TokenData `json:"data,omitempty"`
}
