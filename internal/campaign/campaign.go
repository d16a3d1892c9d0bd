package campaign

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxTokensPerHex is the token cap applied when the campaign rules
// leave MaxTokensPerHex unset.
const DefaultMaxTokensPerHex = 3

// Campaign is the root aggregate for one campaign session: players, the hex
// map, campaign-wide rules, and the append-only event log. It is exclusively
// owned by the host session; the core never keeps a private copy and all
// operations receive the document by reference.
type Campaign struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Players   map[string]*Player `json:"players"`
	Map       *MapConfig         `json:"map,omitempty"`
	Rules     Rules              `json:"rules"`
	Log       *Log               `json:"log"`
	CreatedAt time.Time          `json:"created_at"`
}

// Player is a campaign participant. RequisitionPoints is the spendable
// resource balance accrued through token effects; it never goes negative.
type Player struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Faction           string `json:"faction,omitempty"`
	RequisitionPoints int    `json:"requisition_points"`
}

// MapConfig holds the hex map, keyed by axial coordinate key ("q,r").
// A campaign without a MapConfig has no map configured and rejects all
// token operations.
type MapConfig struct {
	Hexes map[string]*Hex `json:"hexes"`
}

// Hex is a single addressable cell of the campaign map. ControllerID is the
// owning player's ID, empty when the hex is unclaimed. Tokens is kept in
// placement order and stays nil until the first placement.
type Hex struct {
	ControllerID string  `json:"controller_id,omitempty"`
	Tokens       []Token `json:"tokens,omitempty"`
}

// Rules carries campaign-wide tunables.
type Rules struct {
	MaxTokensPerHex int `json:"max_tokens_per_hex,omitempty"`
}

// TokenCap returns the effective per-hex token cap, falling back to
// DefaultMaxTokensPerHex when unset.
func (r Rules) TokenCap() int {
	if r.MaxTokensPerHex <= 0 {
		return DefaultMaxTokensPerHex
	}
	return r.MaxTokensPerHex
}

// HexCoord is an axial hex coordinate. The third cube coordinate is implied
// by s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Key returns the map key for this coordinate ("q,r").
func (h HexCoord) Key() string {
	return fmt.Sprintf("%d,%d", h.Q, h.R)
}

// ParseHexKey parses a "q,r" map key back into a coordinate.
func ParseHexKey(key string) (HexCoord, error) {
	var c HexCoord
	if _, err := fmt.Sscanf(key, "%d,%d", &c.Q, &c.R); err != nil {
		return HexCoord{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	return c, nil
}

// New creates an empty campaign with a generated ID, default rules, and a
// fresh log. The map is configured separately by the host.
func New(name string) *Campaign {
	return &Campaign{
		ID:        uuid.New().String(),
		Name:      name,
		Players:   make(map[string]*Player),
		Rules:     Rules{},
		Log:       &Log{},
		CreatedAt: time.Now().UTC(),
	}
}

// AddPlayer registers a player on the campaign. Existing players with the
// same ID are left untouched.
func (c *Campaign) AddPlayer(id, name string) *Player {
	if p, ok := c.Players[id]; ok {
		return p
	}
	if c.Players == nil {
		c.Players = make(map[string]*Player)
	}
	p := &Player{ID: id, Name: name}
	c.Players[id] = p
	return p
}

// ConfigureMap installs hexes for the given coordinates, replacing any
// previous map. Hexes start unclaimed and empty.
func (c *Campaign) ConfigureMap(coords []HexCoord) {
	hexes := make(map[string]*Hex, len(coords))
	for _, coord := range coords {
		hexes[coord.Key()] = &Hex{}
	}
	c.Map = &MapConfig{Hexes: hexes}
}

// HasMap reports whether a map is configured.
func (c *Campaign) HasMap() bool {
	return c != nil && c.Map != nil && c.Map.Hexes != nil
}

// PlayerName resolves a player ID to its display name, falling back to the
// raw ID when the player is unknown.
func (c *Campaign) PlayerName(playerID string) string {
	if c != nil {
		if p, ok := c.Players[playerID]; ok && p.Name != "" {
			return p.Name
		}
	}
	return playerID
}
