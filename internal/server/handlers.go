package server

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil && s.logger != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil && s.logger != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type createCampaignRequest struct {
	Name            string `json:"name"`
	MaxTokensPerHex int    `json:"max_tokens_per_hex,omitempty"`
	Players         []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Faction string `json:"faction,omitempty"`
	} `json:"players,omitempty"`
	Map []campaign.HexCoord `json:"map,omitempty"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "campaign name is required")
		return
	}
	maxTokens := req.MaxTokensPerHex
	if maxTokens <= 0 {
		maxTokens = s.defaultMaxTokens
	}
	c := s.sessions.CreateCampaign(req.Name, campaign.Rules{MaxTokensPerHex: maxTokens})
	for _, p := range req.Players {
		if p.ID == "" {
			continue
		}
		if _, err := s.sessions.AddPlayer(c.ID, p.ID, p.Name, p.Faction); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if len(req.Map) > 0 {
		if err := s.sessions.ConfigureMap(c.ID, req.Map); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	data, err := s.sessions.CampaignJSON(c.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeRawJSON(w, http.StatusCreated, data)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"campaign_ids": s.sessions.CampaignIDs()})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.CampaignJSON(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	s.writeRawJSON(w, http.StatusOK, data)
}

type addPlayerRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Faction string `json:"faction,omitempty"`
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "player id is required")
		return
	}
	player, err := s.sessions.AddPlayer(r.PathValue("id"), req.ID, req.Name, req.Faction)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, player)
}

type configureMapRequest struct {
	Coords []campaign.HexCoord `json:"coords"`
}

func (s *Server) handleConfigureMap(w http.ResponseWriter, r *http.Request) {
	var req configureMapRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.sessions.ConfigureMap(r.PathValue("id"), req.Coords); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

type placeTokenRequest struct {
	PlayerID string             `json:"player_id"`
	Type     campaign.TokenType `json:"type"`
	Data     campaign.TokenData `json:"data,omitempty"`
}

type placeTokenResponse struct {
	Token  *campaign.Token `json:"token,omitempty"`
	Reason string          `json:"reason"`
}

func (s *Server) handlePlaceToken(w http.ResponseWriter, r *http.Request) {
	var req placeTokenRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !req.Type.IsValid() {
		// Display names are accepted as a convenience for UI callers.
		resolved, ok := campaign.TokenTypeFromDisplayName(string(req.Type))
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown token type")
			return
		}
		req.Type = resolved
	}
	token, reason, err := s.sessions.PlaceToken(r.PathValue("id"), r.PathValue("hex"), req.PlayerID, req.Type, req.Data)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if token == nil {
		status := http.StatusConflict
		if reason == ledger.ReasonHexNotFound || reason == ledger.ReasonNoMap {
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, placeTokenResponse{Reason: reason})
		return
	}
	s.writeJSON(w, http.StatusCreated, placeTokenResponse{Token: token, Reason: reason})
}

func (s *Server) handleRemoveToken(w http.ResponseWriter, r *http.Request) {
	removed, err := s.sessions.RemoveToken(r.PathValue("id"), r.PathValue("hex"), r.PathValue("token"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "token not found")
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

type setControllerRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleSetController(w http.ResponseWriter, r *http.Request) {
	var req setControllerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	changed, err := s.sessions.SetHexController(r.PathValue("id"), r.PathValue("hex"), req.PlayerID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !changed {
		s.writeError(w, http.StatusNotFound, "hex not found")
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleResolveEffects(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.ApplyTokenEffects(r.PathValue("id"), r.PathValue("player"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type spendRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleSpendRequisition(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	spent, err := s.sessions.SpendRequisition(r.PathValue("id"), r.PathValue("player"), req.Amount, req.Reason)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !spent {
		s.writeError(w, http.StatusConflict, "insufficient requisition points")
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	statistics, err := s.sessions.TokenStatistics(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, statistics)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sessions.LogEntries(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]campaign.LogEntry{"entries": entries})
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.ExportSnapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeRawJSON(w, http.StatusOK, data)
}

func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read snapshot")
		return
	}
	c, err := s.sessions.ImportSnapshot(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"campaign_id": c.ID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
