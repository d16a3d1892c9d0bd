package snapshot

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
)

func buildCampaign(t *testing.T) *campaign.Campaign {
	t.Helper()
	l := ledger.New(zap.NewNop())
	c := campaign.New("snapshot test")
	c.AddPlayer("p1", "Alice")
	c.AddPlayer("p2", "Bob")
	c.Players["p1"].Faction = "Imperial Fists"
	c.Players["p1"].RequisitionPoints = 7
	c.ConfigureMap([]campaign.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}})
	c.Map.Hexes["0,0"].ControllerID = "p1"

	require.NotNil(t, l.PlaceToken(c, "0,0", "p1", campaign.TokenResourceNode,
		campaign.TokenData{ResourceNode: &campaign.ResourceNodeData{RPPerTurn: 2}}, c.Log))
	require.NotNil(t, l.PlaceToken(c, "1,0", "p2", campaign.TokenFortification,
		campaign.TokenData{Custom: map[string]any{"note": "bastion"}}, c.Log))
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := buildCampaign(t)

	data, err := Encode(c)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, c.ID, restored.ID)
	assert.Equal(t, c.Name, restored.Name)
	assert.Equal(t, len(c.Players), len(restored.Players))
	assert.Equal(t, "Imperial Fists", restored.Players["p1"].Faction)
	assert.Equal(t, 7, restored.Players["p1"].RequisitionPoints)
	assert.Equal(t, "p1", restored.Map.Hexes["0,0"].ControllerID)
	require.Len(t, restored.Map.Hexes["0,0"].Tokens, 1)
	assert.Equal(t, campaign.TokenResourceNode, restored.Map.Hexes["0,0"].Tokens[0].Type)
	assert.Equal(t, 2, restored.Map.Hexes["0,0"].Tokens[0].Data.RPYield())
	assert.Equal(t, "bastion", restored.Map.Hexes["1,0"].Tokens[0].Data.Custom["note"])
	assert.Equal(t, c.Log.Len(), restored.Log.Len())

	assert.Equal(t, Checksum(c), Checksum(restored))
}

func TestEncodeNilCampaign(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"version":1}`))
	assert.Error(t, err)
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	c := buildCampaign(t)
	data, err := Encode(c)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	env["version"] = Version + 1
	bumped, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = Decode(bumped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestDecodeChecksumMismatch(t *testing.T) {
	c := buildCampaign(t)
	data, err := Encode(c)
	require.NoError(t, err)

	tampered := strings.Replace(string(data), "Alice", "Mallory", 1)
	require.NotEqual(t, string(data), tampered)

	_, err = Decode([]byte(tampered))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestDecodeRestoresMissingLog(t *testing.T) {
	c := campaign.New("logless")
	c.Log = nil

	data, err := Encode(c)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, restored.Log)
	assert.Equal(t, 0, restored.Log.Len())
}

func TestChecksumDeterministic(t *testing.T) {
	c := buildCampaign(t)

	first := Checksum(c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Checksum(c))
	}
}

func TestChecksumChangesWithState(t *testing.T) {
	c := buildCampaign(t)
	before := Checksum(c)

	c.Players["p2"].RequisitionPoints = 99
	assert.NotEqual(t, before, Checksum(c))
}

func TestSaveLoadFile(t *testing.T) {
	c := buildCampaign(t)
	dir := t.TempDir()

	require.NoError(t, SaveToFile(dir, c))

	restored, err := LoadFromFile(dir, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, restored.ID)
	assert.Equal(t, Checksum(c), Checksum(restored))

	_, err = LoadFromFile(dir, "missing-id")
	assert.Error(t, err)
}
