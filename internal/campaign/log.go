package campaign

import "time"

// LogEntryKind tags the kind of an event log entry.
type LogEntryKind string

const (
	// LogTokenPlaced records an accepted token placement.
	LogTokenPlaced LogEntryKind = "TOKEN_PLACED"
	// LogTokenRemoved records an accepted token removal.
	LogTokenRemoved LogEntryKind = "TOKEN_REMOVED"
	// LogRPGained records a requisition point gain from effect resolution.
	LogRPGained LogEntryKind = "RP_GAINED"
	// LogRPSpent records a requisition point expenditure.
	LogRPSpent LogEntryKind = "RP_SPENT"
	// LogControlChanged records a hex controller assignment.
	LogControlChanged LogEntryKind = "CONTROL_CHANGED"
)

// LogEntry is one immutable record of an accepted state change. Entries are
// never edited or removed once appended.
type LogEntry struct {
	Kind      LogEntryKind `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
	// Player is the display name of the acting or affected player.
	Player string `json:"player,omitempty"`
	// TokenType is the display name of the token involved, if any.
	TokenType string `json:"token_type,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	HexKey    string `json:"hex_key,omitempty"`
	Amount    int    `json:"amount,omitempty"`
	// Source names what produced a resource delta (e.g. "Faction Tokens").
	Source string `json:"source,omitempty"`
}

// Log is an ordered, append-only sequence of log entries. Entries must only
// grow through Append, in the order mutations were accepted; callers never
// reorder or batch writes.
type Log struct {
	Entries []LogEntry `json:"entries"`
}

// Append adds an entry to the end of the log.
func (l *Log) Append(entry LogEntry) {
	l.Entries = append(l.Entries, entry)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// NewTokenPlacedEntry builds the record for an accepted placement.
func NewTokenPlacedEntry(playerName string, tokenType TokenType, tokenID, hexKey string, at time.Time) LogEntry {
	return LogEntry{
		Kind:      LogTokenPlaced,
		Timestamp: at,
		Player:    playerName,
		TokenType: tokenType.DisplayName(),
		TokenID:   tokenID,
		HexKey:    hexKey,
	}
}

// NewTokenRemovedEntry builds the record for an accepted removal.
func NewTokenRemovedEntry(playerName string, tokenType TokenType, tokenID, hexKey string, at time.Time) LogEntry {
	return LogEntry{
		Kind:      LogTokenRemoved,
		Timestamp: at,
		Player:    playerName,
		TokenType: tokenType.DisplayName(),
		TokenID:   tokenID,
		HexKey:    hexKey,
	}
}

// NewRPGainedEntry builds the record for a requisition gain.
func NewRPGainedEntry(playerName string, amount int, source string, at time.Time) LogEntry {
	return LogEntry{
		Kind:      LogRPGained,
		Timestamp: at,
		Player:    playerName,
		Amount:    amount,
		Source:    source,
	}
}

// NewRPSpentEntry builds the record for a requisition expenditure.
func NewRPSpentEntry(playerName string, amount int, source string, at time.Time) LogEntry {
	return LogEntry{
		Kind:      LogRPSpent,
		Timestamp: at,
		Player:    playerName,
		Amount:    amount,
		Source:    source,
	}
}

// NewControlChangedEntry builds the record for a hex controller change.
func NewControlChangedEntry(playerName, hexKey string, at time.Time) LogEntry {
	return LogEntry{
		Kind:      LogControlChanged,
		Timestamp: at,
		Player:    playerName,
		HexKey:    hexKey,
	}
}
