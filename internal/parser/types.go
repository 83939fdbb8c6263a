package parser

import (
	"encoding/json"
	"time"
)

// PlayerSeat is the seat number the Arena client assigns to the local player
// in its own logs. Every other seat belongs to an opponent.
const PlayerSeat = 2

// Match result values. The completion event only ever yields win or loss;
// Arena's schema anticipates a draw but the client never emits one, so no
// draw value is produced here either.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// Match is the aggregate reconstructed for a single Arena match.
type Match struct {
	MatchID string

	PlayerSeatID   int
	PlayerName     string
	PlayerUserID   string
	OpponentSeatID int
	OpponentName   string
	OpponentUserID string

	EventID   string // queue/event, e.g. "Ladder"
	Format    string
	MatchType string

	DeckID    string
	DeckName  string
	DeckCards []DeckCard

	StartTime time.Time
	EndTime   time.Time

	Result        string // ResultWin, ResultLoss, or "" when unknown
	WinningTeamID int
	WinningReason string

	TotalTurns int

	Actions       []Action
	LifeSnapshots []LifeSnapshot
	ZoneTransfers []ZoneTransfer
	Objects       map[int]GameObject // instanceId -> latest facts
}

// DeckCard is one main-deck entry from a deck event.
type DeckCard struct {
	CardID   int
	Quantity int
}

// GameObject is the latest snapshot of facts for one game object instance.
// Re-sightings overwrite the previous snapshot wholesale.
type GameObject struct {
	GrpID            int
	Type             string // GameObjectType_* marker
	CardTypes        []string
	Subtypes         []string
	Colors           []string
	Power            *int
	Toughness        *int
	OwnerSeatID      int
	ControllerSeatID int
}

// Action is one legal action offered by the rules engine. Actions represent
// options, not moves taken; filtering to significant types is left to the
// consumer, but the dedup key is fixed here.
type Action struct {
	GameStateID  int
	Turn         int
	Phase        string
	Step         string
	ActivePlayer int
	SeatID       int
	ActionType   string
	InstanceID   int
	CardGrpID    int
	AbilityGrpID int
	ManaCost     json.RawMessage
	TimestampMS  int64
}

// ActionKey is the dedup key for actions within one match.
type ActionKey struct {
	GameStateID int
	ActionType  string
	InstanceID  int
}

// Key returns the action's dedup key.
func (a Action) Key() ActionKey {
	return ActionKey{GameStateID: a.GameStateID, ActionType: a.ActionType, InstanceID: a.InstanceID}
}

// LifeSnapshot records one (seat, life total) pair seen in a game state.
// Snapshots are raw observations; diffing happens in DiffLifeChanges.
type LifeSnapshot struct {
	GameStateID int
	Turn        int
	SeatID      int
	LifeTotal   int
}

// LifeChange is a diffed life record. Change is nil on a seat's first
// sighting; zero-change snapshots are dropped entirely.
type LifeChange struct {
	GameStateID int
	Turn        int
	SeatID      int
	LifeTotal   int
	Change      *int
}

// ZoneTransfer records one game object moving between two match-local zones.
type ZoneTransfer struct {
	GameStateID int
	Turn        int
	InstanceID  int
	CardGrpID   int // 0 when the instance was never resolved to a card
	FromZone    int
	ToZone      int
	Category    string // e.g. "PlayLand", "Draw", "TokenCreated"
}

// TransferKey is the dedup key for zone transfers within one match.
type TransferKey struct {
	GameStateID int
	InstanceID  int
	Category    string
}

// Key returns the transfer's dedup key.
func (z ZoneTransfer) Key() TransferKey {
	return TransferKey{GameStateID: z.GameStateID, InstanceID: z.InstanceID, Category: z.Category}
}

// ParseError is a non-fatal error hit while processing one classified event.
type ParseError struct {
	Kind    EventKind
	Line    int
	Message string
}
