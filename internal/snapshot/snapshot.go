// Package snapshot round-trips a campaign document through the host's
// save/load serialization and computes deterministic state checksums to
// guard against divergent campaign state across sessions.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/campaign"
)

// Version is the current snapshot format version.
const Version = 1

// envelope wraps the campaign document with snapshot metadata.
type envelope struct {
	Version  int                `json:"version"`
	SavedAt  time.Time          `json:"saved_at"`
	Checksum string             `json:"checksum"`
	Campaign *campaign.Campaign `json:"campaign"`
}

// Encode serializes the campaign to the snapshot format. Every field of the
// document round-trips losslessly, including open token data payloads.
func Encode(c *campaign.Campaign) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("campaign is nil")
	}
	env := envelope{
		Version:  Version,
		SavedAt:  time.Now().UTC(),
		Checksum: Checksum(c),
		Campaign: c,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode restores a campaign from snapshot data, verifying the embedded
// checksum when present.
func Decode(data []byte) (*campaign.Campaign, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if env.Campaign == nil {
		return nil, fmt.Errorf("snapshot has no campaign document")
	}
	if env.Campaign.Log == nil {
		env.Campaign.Log = &campaign.Log{}
	}
	if env.Version > Version {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", env.Version, Version)
	}
	if env.Checksum != "" {
		if got := Checksum(env.Campaign); got != env.Checksum {
			return nil, fmt.Errorf("snapshot checksum mismatch: recorded %s, computed %s", env.Checksum, got)
		}
	}
	return env.Campaign, nil
}

// SaveToFile writes the campaign snapshot to <directory>/<campaign-id>.campaign.
func SaveToFile(directory string, c *campaign.Campaign) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s.campaign", c.ID))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadFromFile restores a campaign snapshot written by SaveToFile.
func LoadFromFile(directory, campaignID string) (*campaign.Campaign, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.campaign", campaignID))
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

// Checksum computes a deterministic SHA-256 hash of the campaign state,
// independent of map iteration order. Two documents with the same players,
// hexes, tokens, rules, and log produce the same checksum.
func Checksum(c *campaign.Campaign) string {
	hash := sha256.Sum256([]byte(deterministicRepresentation(c)))
	return hex.EncodeToString(hash[:])
}

// deterministicRepresentation builds a canonical string form of the campaign
// with all maps emitted in sorted key order.
func deterministicRepresentation(c *campaign.Campaign) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "CAMPAIGN:%s|%s|%d\n", c.ID, c.Name, c.Rules.TokenCap())

	playerIDs := make([]string, 0, len(c.Players))
	for id := range c.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		p := c.Players[id]
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%s|%d\n", id, p.Name, p.Faction, p.RequisitionPoints)
	}

	if c.HasMap() {
		hexKeys := make([]string, 0, len(c.Map.Hexes))
		for key := range c.Map.Hexes {
			hexKeys = append(hexKeys, key)
		}
		sort.Strings(hexKeys)
		for _, key := range hexKeys {
			hex := c.Map.Hexes[key]
			fmt.Fprintf(&buf, "HEX:%s|%s|%d\n", key, hex.ControllerID, len(hex.Tokens))
			for _, token := range hex.Tokens {
				fmt.Fprintf(&buf, "TOKEN:%s|%s|%s|%d|%d\n",
					token.ID,
					token.PlayerID,
					token.Type,
					token.PlacedAt.UnixNano(),
					token.Data.RPYield(),
				)
			}
		}
	}

	if c.Log == nil {
		return buf.String()
	}
	for i, entry := range c.Log.Entries {
		fmt.Fprintf(&buf, "LOG:%d|%s|%s|%s|%s|%d|%s\n",
			i, entry.Kind, entry.Player, entry.TokenType, entry.HexKey, entry.Amount, entry.Source)
	}

	return buf.String()
}
