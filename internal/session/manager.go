// Package session owns the live campaign documents for one server process.
// The core packages are synchronous and lock-free; the manager adds the
// single coarse lock a multi-threaded host needs, routing every mutation on
// a document through it, and fans appended log entries out to subscribers.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/effects"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/ledger"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/snapshot"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/stats"
)

// LogHandler receives each log entry appended by an accepted mutation, in
// acceptance order. Handlers run after the mutation completes and must not
// call back into the manager for the same campaign synchronously.
type LogHandler func(campaignID string, entry campaign.LogEntry)

// Manager registers campaign documents and serializes all access to them.
type Manager struct {
	mu        sync.RWMutex
	campaigns map[string]*campaign.Campaign

	ledger   *ledger.Ledger
	resolver *effects.Resolver
	reporter *stats.Reporter
	logger   *zap.Logger

	handlerMu sync.RWMutex
	handler   LogHandler

	// emitMu serializes handler dispatch. It is taken before mu is
	// released so entries reach the handler in acceptance order.
	emitMu sync.Mutex
}

// NewManager creates a session manager with its own ledger, resolver, and
// reporter instances.
func NewManager(logger *zap.Logger) *Manager {
	l := ledger.New(logger)
	return &Manager{
		campaigns: make(map[string]*campaign.Campaign),
		ledger:    l,
		resolver:  effects.NewResolver(l, logger),
		reporter:  stats.NewReporter(l),
		logger:    logger,
	}
}

// SetLogHandler registers the subscriber for appended log entries. Only one
// handler is kept; passing nil removes it.
func (m *Manager) SetLogHandler(handler LogHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handler = handler
}

func (m *Manager) emit(campaignID string, entries []campaign.LogEntry) {
	m.handlerMu.RLock()
	handler := m.handler
	m.handlerMu.RUnlock()
	if handler == nil {
		return
	}
	for _, entry := range entries {
		handler(campaignID, entry)
	}
}

// unlockAndEmit releases the document lock and dispatches the appended
// entries. emitMu is acquired before mu is released, so concurrent mutations
// reach the handler in the same order they were accepted into the log.
func (m *Manager) unlockAndEmit(campaignID string, entries []campaign.LogEntry) {
	m.emitMu.Lock()
	m.mu.Unlock()
	m.emit(campaignID, entries)
	m.emitMu.Unlock()
}

// CreateCampaign creates and registers a fresh campaign with the given
// rules.
func (m *Manager) CreateCampaign(name string, rules campaign.Rules) *campaign.Campaign {
	c := campaign.New(name)
	c.Rules = rules
	m.mu.Lock()
	m.campaigns[c.ID] = c
	m.mu.Unlock()
	if m.logger != nil {
		m.logger.Info("campaign created",
			zap.String("campaign_id", c.ID),
			zap.String("name", name),
		)
	}
	return c
}

// Register adds a campaign document restored from persisted state.
func (m *Manager) Register(c *campaign.Campaign) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("campaign must have an id")
	}
	if c.Log == nil {
		c.Log = &campaign.Log{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign %s already registered", c.ID)
	}
	m.campaigns[c.ID] = c
	return nil
}

// Campaign returns the registered document for the given ID. The pointer is
// the live document; callers outside the lock discipline (HTTP handlers)
// read through CampaignJSON instead of retaining it.
func (m *Manager) Campaign(id string) (*campaign.Campaign, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	return c, ok
}

// CampaignJSON marshals the campaign document while the read lock is held,
// so the encoder never observes a concurrent mutation.
func (m *Manager) CampaignJSON(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	return json.Marshal(c)
}

// CampaignIDs lists the registered campaign IDs.
func (m *Manager) CampaignIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.campaigns))
	for id := range m.campaigns {
		ids = append(ids, id)
	}
	return ids
}

// AddPlayer registers a player on the campaign and returns a copy of the
// roster entry. The faction, when given, is set while the lock is held.
func (m *Manager) AddPlayer(campaignID, playerID, name, faction string) (campaign.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return campaign.Player{}, fmt.Errorf("campaign %s not found", campaignID)
	}
	p := c.AddPlayer(playerID, name)
	if faction != "" {
		p.Faction = faction
	}
	return *p, nil
}

// ConfigureMap installs the hex map for the campaign.
func (m *Manager) ConfigureMap(campaignID string, coords []campaign.HexCoord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("campaign %s not found", campaignID)
	}
	c.ConfigureMap(coords)
	return nil
}

// PlaceToken runs the placement gate and, when it passes, applies the
// placement. The returned reason explains a nil token.
func (m *Manager) PlaceToken(campaignID, hexKey, playerID string, tokenType campaign.TokenType, data campaign.TokenData) (*campaign.Token, string, error) {
	m.mu.Lock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		m.mu.Unlock()
		return nil, "", fmt.Errorf("campaign %s not found", campaignID)
	}
	allowed, reason := m.ledger.CanPlaceToken(c, hexKey, playerID, tokenType)
	if !allowed {
		m.mu.Unlock()
		return nil, reason, nil
	}
	mark := c.Log.Len()
	token := m.ledger.PlaceToken(c, hexKey, playerID, tokenType, data, c.Log)
	if token == nil {
		m.mu.Unlock()
		return nil, ledger.ReasonHexNotFound, nil
	}
	appended := append([]campaign.LogEntry(nil), c.Log.Entries[mark:]...)
	m.unlockAndEmit(campaignID, appended)
	return token, ledger.ReasonOK, nil
}

// RemoveToken removes a token from a hex.
func (m *Manager) RemoveToken(campaignID, hexKey, tokenID string) (bool, error) {
	m.mu.Lock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("campaign %s not found", campaignID)
	}
	mark := c.Log.Len()
	removed := m.ledger.RemoveToken(c, hexKey, tokenID, c.Log)
	if !removed {
		m.mu.Unlock()
		return false, nil
	}
	appended := append([]campaign.LogEntry(nil), c.Log.Entries[mark:]...)
	m.unlockAndEmit(campaignID, appended)
	return true, nil
}

// SetHexController claims or transfers control of a hex.
func (m *Manager) SetHexController(campaignID, hexKey, playerID string) (bool, error) {
	m.mu.Lock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("campaign %s not found", campaignID)
	}
	mark := c.Log.Len()
	changed := m.ledger.SetHexController(c, hexKey, playerID, c.Log)
	if !changed {
		m.mu.Unlock()
		return false, nil
	}
	appended := append([]campaign.LogEntry(nil), c.Log.Entries[mark:]...)
	m.unlockAndEmit(campaignID, appended)
	return true, nil
}

// ApplyTokenEffects resolves token effects for one player.
func (m *Manager) ApplyTokenEffects(campaignID, playerID string) (effects.Result, error) {
	m.mu.Lock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		m.mu.Unlock()
		return effects.Result{}, fmt.Errorf("campaign %s not found", campaignID)
	}
	mark := c.Log.Len()
	result := m.resolver.ApplyTokenEffects(c, playerID, c.Log)
	appended := append([]campaign.LogEntry(nil), c.Log.Entries[mark:]...)
	m.unlockAndEmit(campaignID, appended)
	return result, nil
}

// SpendRequisition debits a player's requisition balance.
func (m *Manager) SpendRequisition(campaignID, playerID string, amount int, reason string) (bool, error) {
	m.mu.Lock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("campaign %s not found", campaignID)
	}
	mark := c.Log.Len()
	spent := m.resolver.SpendRequisition(c, playerID, amount, reason, c.Log)
	if !spent {
		m.mu.Unlock()
		return false, nil
	}
	appended := append([]campaign.LogEntry(nil), c.Log.Entries[mark:]...)
	m.unlockAndEmit(campaignID, appended)
	return true, nil
}

// TokenStatistics computes the per-player token breakdown.
func (m *Manager) TokenStatistics(campaignID string) (map[string]stats.PlayerTokenStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}
	return m.reporter.TokenStatistics(c), nil
}

// LogEntries returns a copy of the campaign's event log.
func (m *Manager) LogEntries(campaignID string) ([]campaign.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}
	return append([]campaign.LogEntry(nil), c.Log.Entries...), nil
}

// ExportSnapshot serializes the campaign for the host's save step.
func (m *Manager) ExportSnapshot(campaignID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}
	return snapshot.Encode(c)
}

// ImportSnapshot restores a campaign from snapshot data and registers it,
// replacing any registered campaign with the same ID. Import is the explicit
// restore path; startup restoration goes through Register, which rejects
// duplicates instead.
func (m *Manager) ImportSnapshot(data []byte) (*campaign.Campaign, error) {
	c, err := snapshot.Decode(data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	if m.logger != nil {
		m.logger.Info("campaign restored from snapshot",
			zap.String("campaign_id", c.ID),
			zap.String("name", c.Name),
			zap.Int("log_entries", c.Log.Len()),
		)
	}
	return c, nil
}

// SaveAll writes every registered campaign to the snapshot directory.
func (m *Manager) SaveAll(directory string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.campaigns {
		if err := snapshot.SaveToFile(directory, c); err != nil {
			return fmt.Errorf("failed to save campaign %s: %w", id, err)
		}
	}
	return nil
}

// Ledger exposes the underlying ledger for in-process collaborators that
// already hold the document lock discipline (e.g. tests, the phase
// controller embedding this manager).
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}
