// Package effects turns a player's standing tokens into resource gains and
// bonuses once per resolution cycle.
package effects

import (
	"time"

	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
)

// SourceFactionTokens names the source recorded on RP_GAINED entries
// produced by token effect resolution.
const SourceFactionTokens = "Faction Tokens"

// Bonus kinds contributed by standing tokens.
const (
	BonusDefensive = "Defensive"
	BonusMorale    = "Morale"
)

// ResourceRequisition keys the requisition balance in Result.ResourcesGained.
const ResourceRequisition = "requisition"

// Bonus is a non-resource benefit granted by a standing token.
type Bonus struct {
	Kind   string             `json:"kind"`
	HexKey string             `json:"hex_key"`
	Source campaign.TokenType `json:"source"`
}

// Result is the outcome of one effect resolution for one player.
type Result struct {
	RPGained        int            `json:"rp_gained"`
	ResourcesGained map[string]int `json:"resources_gained"`
	Bonuses         []Bonus        `json:"bonuses"`
}

// Resolver computes and applies token effects. Like the ledger it holds no
// campaign state; the phase controller owns the resolution cadence and must
// call ApplyTokenEffects exactly once per cycle per player — the resolver
// does not track "already resolved this cycle".
type Resolver struct {
	ledger *ledger.Ledger
	logger *zap.Logger
	now    func() time.Time
}

// NewResolver creates a resolver backed by the given ledger.
func NewResolver(l *ledger.Ledger, logger *zap.Logger) *Resolver {
	return &Resolver{
		ledger: l,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ApplyTokenEffects accumulates effects over every token the player owns:
// resource nodes contribute their per-turn requisition yield, fortifications
// a Defensive bonus, sacred shrines a Morale bonus. A positive requisition
// gain is credited to the player's balance and logged as a single RP_GAINED
// entry; when the player cannot be resolved the credit and log entry are
// skipped but the computed result is still returned.
func (r *Resolver) ApplyTokenEffects(c *campaign.Campaign, playerID string, sink *campaign.Log) Result {
	result := Result{
		ResourcesGained: make(map[string]int),
		Bonuses:         make([]Bonus, 0),
	}

	for _, placed := range r.ledger.PlayerTokens(c, playerID) {
		switch placed.Token.Type {
		case campaign.TokenResourceNode:
			result.RPGained += placed.Token.Data.RPYield()
		case campaign.TokenFortification:
			result.Bonuses = append(result.Bonuses, Bonus{
				Kind:   BonusDefensive,
				HexKey: placed.HexKey,
				Source: placed.Token.Type,
			})
		case campaign.TokenSacredShrine:
			result.Bonuses = append(result.Bonuses, Bonus{
				Kind:   BonusMorale,
				HexKey: placed.HexKey,
				Source: placed.Token.Type,
			})
		}
	}

	if result.RPGained > 0 {
		result.ResourcesGained[ResourceRequisition] = result.RPGained
		player, ok := c.Players[playerID]
		if !ok {
			if r.logger != nil {
				r.logger.Warn("effect resolution for unknown player, balance unchanged",
					zap.String("campaign_id", c.ID),
					zap.String("player_id", playerID),
					zap.Int("rp_gained", result.RPGained),
				)
			}
			return result
		}
		player.RequisitionPoints += result.RPGained
		sink.Append(campaign.NewRPGainedEntry(player.Name, result.RPGained, SourceFactionTokens, r.now()))
		if r.logger != nil {
			r.logger.Info("token effects applied",
				zap.String("campaign_id", c.ID),
				zap.String("player_id", playerID),
				zap.Int("rp_gained", result.RPGained),
				zap.Int("balance", player.RequisitionPoints),
				zap.Int("bonuses", len(result.Bonuses)),
			)
		}
	}

	return result
}

// SpendRequisition debits the player's balance and appends an RP_SPENT entry
// naming the reason. Returns false without mutation when the player is
// unknown, the amount is not positive, or the balance would go negative.
func (r *Resolver) SpendRequisition(c *campaign.Campaign, playerID string, amount int, reason string, sink *campaign.Log) bool {
	if amount <= 0 {
		return false
	}
	player, ok := c.Players[playerID]
	if !ok || player.RequisitionPoints < amount {
		return false
	}
	player.RequisitionPoints -= amount
	sink.Append(campaign.NewRPSpentEntry(player.Name, amount, reason, r.now()))
	if r.logger != nil {
		r.logger.Info("requisition spent",
			zap.String("campaign_id", c.ID),
			zap.String("player_id", playerID),
			zap.Int("amount", amount),
			zap.Int("balance", player.RequisitionPoints),
		)
	}
	return true
}
