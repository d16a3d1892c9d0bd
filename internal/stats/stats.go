// Package stats provides read-only aggregation over the token ledger for
// reporting collaborators.
package stats

import (
	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
)

// PlayerTokenStats is one player's token breakdown. ByType is keyed by token
// type display name and contains every enumerated type, zeros included.
type PlayerTokenStats struct {
	PlayerName  string         `json:"player_name"`
	TotalTokens int            `json:"total_tokens"`
	ByType      map[string]int `json:"by_type"`
}

// Reporter derives statistics from the ledger without mutating anything.
type Reporter struct {
	ledger *ledger.Ledger
}

// NewReporter creates a reporter backed by the given ledger.
func NewReporter(l *ledger.Ledger) *Reporter {
	return &Reporter{ledger: l}
}

// TokenStatistics computes the full per-player token breakdown for the
// campaign. Returns an empty map when no campaign is loaded.
func (r *Reporter) TokenStatistics(c *campaign.Campaign) map[string]PlayerTokenStats {
	result := make(map[string]PlayerTokenStats)
	if c == nil {
		return result
	}
	for playerID, player := range c.Players {
		byType := make(map[string]int, len(campaign.TokenTypes))
		total := 0
		for _, tokenType := range campaign.TokenTypes {
			count := r.ledger.TokenCount(c, playerID, tokenType)
			byType[tokenType.DisplayName()] = count
			total += count
		}
		result[playerID] = PlayerTokenStats{
			PlayerName:  player.Name,
			TotalTokens: total,
			ByType:      byType,
		}
	}
	return result
}
