package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/config"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/session"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/stats"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	cfg := config.HTTPConfig{
		AllowedOrigins: []string{"*"},
		RateLimit:      config.RateLimitConfig{Enabled: false},
	}
	srv := New(cfg, 3, session.NewManager(zap.NewNop()), zap.NewNop())
	return srv, srv.Routes()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createCampaign(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/campaigns", map[string]any{
		"name": "test campaign",
		"players": []map[string]string{
			{"id": "p1", "name": "Alice", "faction": "Imperial Fists"},
			{"id": "p2", "name": "Bob"},
		},
		"map": []map[string]int{
			{"q": 0, "r": 0},
			{"q": 1, "r": 0},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var c campaign.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.NotEmpty(t, c.ID)
	return c.ID
}

func TestHealthz(t *testing.T) {
	_, handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateCampaignValidation(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/campaigns", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndGetCampaign(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/api/campaigns/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c campaign.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "test campaign", c.Name)
	assert.Len(t, c.Players, 2)
	assert.Equal(t, "Imperial Fists", c.Players["p1"].Faction)
	assert.Len(t, c.Map.Hexes, 2)

	rec = doJSON(t, handler, http.MethodGet, "/api/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/campaigns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Contains(t, listing["campaign_ids"], id)
}

func TestAddPlayer(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/campaigns/"+id+"/players",
		map[string]string{"id": "p3", "name": "Carol"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/campaigns/"+id+"/players",
		map[string]string{"name": "no id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/campaigns/missing/players",
		map[string]string{"id": "p9", "name": "Nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceTokenFlow(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	place := func(hex string, body map[string]any) *httptest.ResponseRecorder {
		return doJSON(t, handler, http.MethodPost,
			fmt.Sprintf("/api/campaigns/%s/hexes/%s/tokens", id, hex), body)
	}

	rec := place("0,0", map[string]any{"player_id": "p1", "type": "RESOURCE_NODE"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp placeTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Token)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, campaign.TokenResourceNode, resp.Token.Type)

	// Unknown token type.
	rec = place("0,0", map[string]any{"player_id": "p1", "type": "DRAGON"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Display names resolve to their enum value.
	rec = place("0,0", map[string]any{"player_id": "p1", "type": "Fortification"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, campaign.TokenFortification, resp.Token.Type)

	// Unknown hex.
	rec = place("9,9", map[string]any{"player_id": "p1", "type": "FORTIFICATION"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hex not claimed", resp.Reason)

	// Fill the hex; the gate rejects the overflow with 409.
	rec = place("0,0", map[string]any{"player_id": "p1", "type": "RESOURCE_NODE"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = place("0,0", map[string]any{"player_id": "p1", "type": "RESOURCE_NODE"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "maximum tokens on hex reached", resp.Reason)

	// Hex claimed by another player.
	rec = doJSON(t, handler, http.MethodPut, "/api/campaigns/"+id+"/hexes/1,0/controller",
		map[string]string{"player_id": "p2"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = place("1,0", map[string]any{"player_id": "p1", "type": "FORTIFICATION"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hex controlled by another player", resp.Reason)
}

func TestRemoveTokenEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodPost,
		"/api/campaigns/"+id+"/hexes/0,0/tokens",
		map[string]any{"player_id": "p1", "type": "ANCIENT_RELIC"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp placeTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	path := "/api/campaigns/" + id + "/hexes/0,0/tokens/" + resp.Token.ID
	rec = doJSON(t, handler, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveEffectsAndSpend(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodPost,
		"/api/campaigns/"+id+"/hexes/0,0/tokens",
		map[string]any{
			"player_id": "p1",
			"type":      "RESOURCE_NODE",
			"data":      map[string]any{"resource_node": map[string]int{"rp_per_turn": 4}},
		})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/campaigns/"+id+"/players/p1/resolve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		RPGained int `json:"rp_gained"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 4, result.RPGained)

	rec = doJSON(t, handler, http.MethodPost, "/api/campaigns/"+id+"/players/p1/spend",
		map[string]any{"amount": 3, "reason": "reinforcements"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/campaigns/"+id+"/players/p1/spend",
		map[string]any{"amount": 10, "reason": "overdraw"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatisticsAndLogEndpoints(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodPost,
		"/api/campaigns/"+id+"/hexes/0,0/tokens",
		map[string]any{"player_id": "p1", "type": "SACRED_SHRINE"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/campaigns/"+id+"/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statistics map[string]stats.PlayerTokenStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statistics))
	assert.Equal(t, 1, statistics["p1"].TotalTokens)
	assert.Equal(t, 1, statistics["p1"].ByType["Sacred Shrine"])

	rec = doJSON(t, handler, http.MethodGet, "/api/campaigns/"+id+"/log", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logResp map[string][]campaign.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logResp))
	require.Len(t, logResp["entries"], 1)
	assert.Equal(t, campaign.LogTokenPlaced, logResp["entries"][0].Kind)
}

func TestSnapshotEndpoints(t *testing.T) {
	_, handler := newTestServer(t)
	id := createCampaign(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/api/campaigns/"+id+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := rec.Body.Bytes()

	// Import into a fresh server.
	_, other := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/snapshot", bytes.NewReader(data))
	imported := httptest.NewRecorder()
	other.ServeHTTP(imported, req)
	require.Equal(t, http.StatusCreated, imported.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(imported.Body.Bytes(), &resp))
	assert.Equal(t, id, resp["campaign_id"])

	rec = doJSON(t, other, http.MethodGet, "/api/campaigns/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
