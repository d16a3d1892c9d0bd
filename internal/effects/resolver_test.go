package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
)

func setup() (*Resolver, *ledger.Ledger, *campaign.Campaign) {
	l := ledger.New(zap.NewNop())
	r := NewResolver(l, zap.NewNop())
	c := campaign.New("effects test")
	c.AddPlayer("p1", "Alice")
	c.AddPlayer("p2", "Bob")
	c.ConfigureMap([]campaign.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}, {Q: 0, R: 1}})
	return r, l, c
}

func TestApplyTokenEffectsAccumulatesResourceNodes(t *testing.T) {
	r, l, c := setup()

	l.PlaceToken(c, "0,0", "p1", campaign.TokenResourceNode,
		campaign.TokenData{ResourceNode: &campaign.ResourceNodeData{RPPerTurn: 2}}, c.Log)
	l.PlaceToken(c, "1,0", "p1", campaign.TokenResourceNode,
		campaign.TokenData{ResourceNode: &campaign.ResourceNodeData{RPPerTurn: 3}}, c.Log)
	logLen := c.Log.Len()

	result := r.ApplyTokenEffects(c, "p1", c.Log)
	assert.Equal(t, 5, result.RPGained)
	assert.Equal(t, 5, result.ResourcesGained[ResourceRequisition])
	assert.Empty(t, result.Bonuses)
	assert.Equal(t, 5, c.Players["p1"].RequisitionPoints)

	// Exactly one RP_GAINED entry for the aggregate amount.
	require.Equal(t, logLen+1, c.Log.Len())
	entry := c.Log.Entries[c.Log.Len()-1]
	assert.Equal(t, campaign.LogRPGained, entry.Kind)
	assert.Equal(t, "Alice", entry.Player)
	assert.Equal(t, 5, entry.Amount)
	assert.Equal(t, SourceFactionTokens, entry.Source)
}

func TestApplyTokenEffectsDefaultYield(t *testing.T) {
	r, l, c := setup()

	l.PlaceToken(c, "0,0", "p1", campaign.TokenResourceNode, campaign.TokenData{}, c.Log)

	result := r.ApplyTokenEffects(c, "p1", c.Log)
	assert.Equal(t, 1, result.RPGained)
	assert.Equal(t, 1, c.Players["p1"].RequisitionPoints)
}

func TestApplyTokenEffectsBonuses(t *testing.T) {
	r, l, c := setup()

	l.PlaceToken(c, "0,0", "p1", campaign.TokenFortification, campaign.TokenData{}, c.Log)
	l.PlaceToken(c, "1,0", "p1", campaign.TokenSacredShrine, campaign.TokenData{}, c.Log)
	l.PlaceToken(c, "0,1", "p1", campaign.TokenStrategicObjective, campaign.TokenData{}, c.Log)
	logLen := c.Log.Len()

	result := r.ApplyTokenEffects(c, "p1", c.Log)
	assert.Equal(t, 0, result.RPGained)
	require.Len(t, result.Bonuses, 2)
	assert.Equal(t, Bonus{Kind: BonusDefensive, HexKey: "0,0", Source: campaign.TokenFortification}, result.Bonuses[0])
	assert.Equal(t, Bonus{Kind: BonusMorale, HexKey: "1,0", Source: campaign.TokenSacredShrine}, result.Bonuses[1])

	// No requisition gained, so no balance change and no log entry.
	assert.Equal(t, 0, c.Players["p1"].RequisitionPoints)
	assert.Equal(t, logLen, c.Log.Len())
}

func TestApplyTokenEffectsIgnoresOtherPlayers(t *testing.T) {
	r, l, c := setup()

	l.PlaceToken(c, "0,0", "p1", campaign.TokenResourceNode, campaign.TokenData{}, c.Log)
	l.PlaceToken(c, "1,0", "p2", campaign.TokenResourceNode, campaign.TokenData{}, c.Log)

	result := r.ApplyTokenEffects(c, "p1", c.Log)
	assert.Equal(t, 1, result.RPGained)
	assert.Equal(t, 1, c.Players["p1"].RequisitionPoints)
	assert.Equal(t, 0, c.Players["p2"].RequisitionPoints)
}

func TestApplyTokenEffectsUnknownPlayerSkipsCredit(t *testing.T) {
	r, l, c := setup()

	// Tokens owned by a player id with no roster entry still resolve.
	l.PlaceToken(c, "0,0", "ghost", campaign.TokenResourceNode,
		campaign.TokenData{ResourceNode: &campaign.ResourceNodeData{RPPerTurn: 4}}, c.Log)
	logLen := c.Log.Len()

	result := r.ApplyTokenEffects(c, "ghost", c.Log)
	assert.Equal(t, 4, result.RPGained)
	assert.Equal(t, 4, result.ResourcesGained[ResourceRequisition])
	assert.Equal(t, logLen, c.Log.Len(), "no RP_GAINED entry for unknown player")
}

func TestApplyTokenEffectsNoTokens(t *testing.T) {
	r, _, c := setup()

	result := r.ApplyTokenEffects(c, "p1", c.Log)
	assert.Equal(t, 0, result.RPGained)
	assert.NotNil(t, result.ResourcesGained)
	assert.NotNil(t, result.Bonuses)
	assert.Empty(t, result.Bonuses)
}

func TestSpendRequisition(t *testing.T) {
	r, l, c := setup()

	l.PlaceToken(c, "0,0", "p1", campaign.TokenResourceNode,
		campaign.TokenData{ResourceNode: &campaign.ResourceNodeData{RPPerTurn: 5}}, c.Log)
	r.ApplyTokenEffects(c, "p1", c.Log)
	require.Equal(t, 5, c.Players["p1"].RequisitionPoints)

	require.True(t, r.SpendRequisition(c, "p1", 3, "reinforcements", c.Log))
	assert.Equal(t, 2, c.Players["p1"].RequisitionPoints)

	entry := c.Log.Entries[c.Log.Len()-1]
	assert.Equal(t, campaign.LogRPSpent, entry.Kind)
	assert.Equal(t, "Alice", entry.Player)
	assert.Equal(t, 3, entry.Amount)
	assert.Equal(t, "reinforcements", entry.Source)
}

func TestSpendRequisitionRejections(t *testing.T) {
	r, _, c := setup()
	c.Players["p1"].RequisitionPoints = 2
	logLen := c.Log.Len()

	assert.False(t, r.SpendRequisition(c, "p1", 0, "noop", c.Log))
	assert.False(t, r.SpendRequisition(c, "p1", -1, "noop", c.Log))
	assert.False(t, r.SpendRequisition(c, "p1", 3, "overdraw", c.Log))
	assert.False(t, r.SpendRequisition(c, "ghost", 1, "unknown", c.Log))

	assert.Equal(t, 2, c.Players["p1"].RequisitionPoints)
	assert.Equal(t, logLen, c.Log.Len())
}
