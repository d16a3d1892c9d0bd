// Package ledger gates and applies all token-level mutations against a
// campaign document: placement, removal, controller changes, and the
// read-only token queries the resolver and reporter build on.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
)

// Placement check outcomes returned by CanPlaceToken. The reason strings are
// part of the API surface; UI collaborators show them verbatim.
const (
	ReasonOK            = "OK"
	ReasonNoMap         = "no map configured"
	ReasonHexNotFound   = "hex not claimed"
	ReasonHexControlled = "hex controlled by another player"
	ReasonHexFull       = "maximum tokens on hex reached"
)

// PlacedToken pairs a token with the hex it sits on.
type PlacedToken struct {
	Token  campaign.Token
	HexKey string
	Hex    *campaign.Hex
}

// Ledger validates and applies token mutations. It holds no campaign state
// of its own; every call receives the document by reference. Operations are
// synchronous and not safe for concurrent use on the same document — a
// multi-threaded host serializes calls (see the session manager).
type Ledger struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a ledger. The logger may be nil; diagnostics are informational
// only and never part of the functional contract.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// CanPlaceToken reports whether a placement would be accepted, with the
// first failing rule's reason. It is a pure read with no side effects.
// Callers are expected to consult it before PlaceToken: PlaceToken itself
// only re-enforces the map and hex existence checks, not ownership or the
// token cap.
func (l *Ledger) CanPlaceToken(c *campaign.Campaign, hexKey, playerID string, tokenType campaign.TokenType) (bool, string) {
	if !c.HasMap() {
		return false, ReasonNoMap
	}
	hex, ok := c.Map.Hexes[hexKey]
	if !ok {
		return false, ReasonHexNotFound
	}
	if hex.ControllerID != "" && hex.ControllerID != playerID {
		return false, ReasonHexControlled
	}
	if len(hex.Tokens) >= c.Rules.TokenCap() {
		return false, ReasonHexFull
	}
	return true, ReasonOK
}

// PlaceToken creates a token on the hex and appends a TOKEN_PLACED entry to
// the sink. It returns nil when no map is configured or the hex key does not
// exist; those are the only preconditions enforced here. The cap and
// ownership rules are the caller's obligation via CanPlaceToken.
func (l *Ledger) PlaceToken(c *campaign.Campaign, hexKey, playerID string, tokenType campaign.TokenType, data campaign.TokenData, sink *campaign.Log) *campaign.Token {
	if !c.HasMap() {
		l.warn("place token rejected", hexKey, playerID, tokenType, ReasonNoMap)
		return nil
	}
	hex, ok := c.Map.Hexes[hexKey]
	if !ok {
		l.warn("place token rejected", hexKey, playerID, tokenType, ReasonHexNotFound)
		return nil
	}

	token := campaign.Token{
		ID:       l.newID(),
		PlayerID: playerID,
		Type:     tokenType,
		PlacedAt: l.now(),
		Data:     data,
	}
	hex.Tokens = append(hex.Tokens, token)
	sink.Append(campaign.NewTokenPlacedEntry(c.PlayerName(playerID), tokenType, token.ID, hexKey, token.PlacedAt))

	if l.logger != nil {
		l.logger.Info("token placed",
			zap.String("campaign_id", c.ID),
			zap.String("token_id", token.ID),
			zap.String("token_type", string(tokenType)),
			zap.String("hex_key", hexKey),
			zap.String("player_id", playerID),
		)
	}
	return &token
}

// RemoveToken removes the token with the given ID from the hex, preserving
// the order of the remaining tokens, and appends a TOKEN_REMOVED entry.
// It returns false without mutating anything when the map, hex, or token is
// absent; calling it again for an already-removed ID is a harmless no-op.
func (l *Ledger) RemoveToken(c *campaign.Campaign, hexKey, tokenID string, sink *campaign.Log) bool {
	if !c.HasMap() {
		return false
	}
	hex, ok := c.Map.Hexes[hexKey]
	if !ok || len(hex.Tokens) == 0 {
		return false
	}
	for i, token := range hex.Tokens {
		if token.ID != tokenID {
			continue
		}
		hex.Tokens = append(hex.Tokens[:i], hex.Tokens[i+1:]...)
		sink.Append(campaign.NewTokenRemovedEntry(c.PlayerName(token.PlayerID), token.Type, token.ID, hexKey, l.now()))
		if l.logger != nil {
			l.logger.Info("token removed",
				zap.String("campaign_id", c.ID),
				zap.String("token_id", tokenID),
				zap.String("hex_key", hexKey),
			)
		}
		return true
	}
	return false
}

// SetHexController claims or transfers control of a hex and appends a
// CONTROL_CHANGED entry. Passing an empty player ID releases the hex.
// Returns false when the map or hex is absent.
func (l *Ledger) SetHexController(c *campaign.Campaign, hexKey, playerID string, sink *campaign.Log) bool {
	if !c.HasMap() {
		return false
	}
	hex, ok := c.Map.Hexes[hexKey]
	if !ok {
		return false
	}
	hex.ControllerID = playerID
	sink.Append(campaign.NewControlChangedEntry(c.PlayerName(playerID), hexKey, l.now()))
	return true
}

// PlayerTokens collects every token owned by the player across the whole
// map, in sorted hex key order so results are stable. Read-only; returns an
// empty slice when no map is configured.
func (l *Ledger) PlayerTokens(c *campaign.Campaign, playerID string) []PlacedToken {
	if !c.HasMap() {
		return nil
	}
	keys := make([]string, 0, len(c.Map.Hexes))
	for key := range c.Map.Hexes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var found []PlacedToken
	for _, key := range keys {
		hex := c.Map.Hexes[key]
		for _, token := range hex.Tokens {
			if token.PlayerID == playerID {
				found = append(found, PlacedToken{Token: token, HexKey: key, Hex: hex})
			}
		}
	}
	return found
}

// HexTokens returns the hex's token list, or nil when the hex or list is
// absent. The returned slice is the live list; callers must not mutate it.
func (l *Ledger) HexTokens(c *campaign.Campaign, hexKey string) []campaign.Token {
	if !c.HasMap() {
		return nil
	}
	hex, ok := c.Map.Hexes[hexKey]
	if !ok {
		return nil
	}
	return hex.Tokens
}

// TokenCount counts the player's tokens, optionally filtered to a single
// type when a filter is supplied.
func (l *Ledger) TokenCount(c *campaign.Campaign, playerID string, typeFilter ...campaign.TokenType) int {
	tokens := l.PlayerTokens(c, playerID)
	if len(typeFilter) == 0 {
		return len(tokens)
	}
	count := 0
	for _, placed := range tokens {
		if placed.Token.Type == typeFilter[0] {
			count++
		}
	}
	return count
}

func (l *Ledger) warn(msg, hexKey, playerID string, tokenType campaign.TokenType, reason string) {
	if l.logger == nil {
		return
	}
	l.logger.Warn(msg,
		zap.String("hex_key", hexKey),
		zap.String("player_id", playerID),
		zap.String("token_type", string(tokenType)),
		zap.String("reason", reason),
	)
}
