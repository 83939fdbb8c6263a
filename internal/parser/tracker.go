package parser

import (
	"encoding/json"
	"fmt"
	"log"
)

// matchCompletedState is the gameRoomInfo stateType that closes a match.
const matchCompletedState = "MatchGameRoomStateType_MatchCompleted"

// matchScope marks the result-list entry that decides the whole match.
const matchScope = "MatchScope_Match"

// zoneTransferAnnotation tags annotations carrying a zone movement.
const zoneTransferAnnotation = "AnnotationType_ZoneTransfer"

// State is the reducer state folded over the event stream: the one open
// aggregate, the completed list, and the two sticky fallbacks that are part
// of per-run parser state.
type State struct {
	Current   *Match
	Completed []*Match

	// lastTurn is the last nonzero turn number seen in the current match,
	// reused for game-state messages that omit turnInfo.
	lastTurn int
}

// Tracker folds classified events into match aggregates. One aggregate is
// open at a time; it closes when a different matchId appears or at end of
// stream. Errors while processing a single event are collected and logged,
// never fatal.
type Tracker struct {
	state  State
	errors []ParseError
}

// NewTracker returns a tracker with empty state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply processes one event. Any error (including a recovered panic) is
// recorded with the event's line number and processing continues.
func (t *Tracker) Apply(ev *RawEvent) {
	if err := t.applyEvent(ev); err != nil {
		t.errors = append(t.errors, ParseError{Kind: ev.Kind, Line: ev.Line, Message: err.Error()})
		log.Printf("[Tracker] Error processing %s event at line %d: %v", ev.Kind, ev.Line, err)
	}
}

// Finish closes any still-open aggregate and returns the completed list.
// A trailing aggregate for an unterminated match keeps an unset result.
func (t *Tracker) Finish() []*Match {
	if t.state.Current != nil {
		t.state.Completed = append(t.state.Completed, t.state.Current)
		t.state.Current = nil
	}
	return t.state.Completed
}

// Errors returns the non-fatal errors collected so far.
func (t *Tracker) Errors() []ParseError {
	return t.errors
}

func (t *Tracker) applyEvent(ev *RawEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch ev.Kind {
	case KindMatchState:
		return t.applyMatchState(ev)
	case KindGREEvent:
		return t.applyGREEvent(ev)
	case KindCourseDeck, KindDeckSet, KindDeckUpsert:
		return t.applyDeckEvent(ev)
	}
	return nil
}

func (t *Tracker) applyMatchState(ev *RawEvent) error {
	var payload matchStatePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return fmt.Errorf("failed to decode match state: %w", err)
	}

	info := payload.MatchGameRoomStateChangedEvent.GameRoomInfo
	matchID := info.GameRoomConfig.MatchID
	if matchID == "" {
		return nil
	}

	if t.state.Current == nil || t.state.Current.MatchID != matchID {
		if t.state.Current != nil {
			t.state.Completed = append(t.state.Completed, t.state.Current)
		}
		t.state.Current = &Match{
			MatchID:   matchID,
			StartTime: ev.Time(),
			Objects:   make(map[int]GameObject),
		}
		t.state.lastTurn = 0
	}

	m := t.state.Current

	for _, player := range info.GameRoomConfig.ReservedPlayers {
		if player.SystemSeatID == PlayerSeat {
			m.PlayerName = player.PlayerName
			m.PlayerSeatID = player.SystemSeatID
			m.PlayerUserID = player.UserID
		} else {
			m.OpponentName = player.PlayerName
			m.OpponentSeatID = player.SystemSeatID
			m.OpponentUserID = player.UserID
		}
		if player.EventID != "" && m.EventID == "" {
			m.EventID = player.EventID
		}
	}

	if info.StateType == matchCompletedState {
		m.EndTime = ev.Time()
		m.WinningTeamID = info.FinalMatchResult.WinningTeamID
		for _, result := range info.FinalMatchResult.ResultList {
			if result.Scope != matchScope {
				continue
			}
			// The schema anticipates a draw but the client never reports
			// one; the result stays unset unless a winning team is named.
			if result.WinningTeamID == m.PlayerSeatID && result.WinningTeamID != 0 {
				m.Result = ResultWin
			} else if result.WinningTeamID != 0 {
				m.Result = ResultLoss
			}
			m.WinningReason = result.Reason
		}
	}

	return nil
}

func (t *Tracker) applyGREEvent(ev *RawEvent) error {
	if t.state.Current == nil {
		return nil
	}

	var payload grePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return fmt.Errorf("failed to decode GRE event: %w", err)
	}

	for _, msg := range payload.GreToClientEvent.GreToClientMessages {
		if msg.Type == "GREMessageType_GameStateMessage" {
			t.applyGameState(&msg.GameStateMessage, ev.TimestampMS)
		}
	}
	return nil
}

func (t *Tracker) applyGameState(gs *gameStateMessage, timestampMS int64) {
	m := t.state.Current

	// Sticky turn fallback: a message without turnInfo reuses the last
	// nonzero turn seen in this match.
	turn := gs.TurnInfo.TurnNumber
	if turn > 0 {
		t.state.lastTurn = turn
	} else if t.state.lastTurn > 0 {
		turn = t.state.lastTurn
	}
	if turn > m.TotalTurns {
		m.TotalTurns = turn
	}

	if gs.GameInfo.SuperFormat != "" {
		m.Format = gs.GameInfo.SuperFormat
	}
	if gs.GameInfo.Type != "" {
		m.MatchType = gs.GameInfo.Type
	}

	for _, player := range gs.Players {
		if player.LifeTotal == nil || player.SystemSeatNumber == 0 {
			continue
		}
		m.LifeSnapshots = append(m.LifeSnapshots, LifeSnapshot{
			GameStateID: gs.GameStateID,
			Turn:        turn,
			SeatID:      player.SystemSeatNumber,
			LifeTotal:   *player.LifeTotal,
		})
	}

	// Latest snapshot per instance wins; earlier facts are overwritten,
	// not merged.
	for _, obj := range gs.GameObjects {
		if obj.InstanceID == 0 {
			continue
		}
		m.Objects[obj.InstanceID] = GameObject{
			GrpID:            obj.GrpID,
			Type:             obj.Type,
			CardTypes:        obj.CardTypes,
			Subtypes:         obj.Subtypes,
			Colors:           obj.Color,
			Power:            obj.Power.Value,
			Toughness:        obj.Toughness.Value,
			OwnerSeatID:      obj.OwnerSeatID,
			ControllerSeatID: obj.ControllerSeatID,
		}
	}

	for _, action := range gs.Actions {
		if action.Action.ActionType == "" {
			continue
		}
		grpID := action.Action.GrpID
		if facts, ok := m.Objects[action.Action.InstanceID]; ok && facts.GrpID != 0 {
			grpID = facts.GrpID
		}
		m.Actions = append(m.Actions, Action{
			GameStateID:  gs.GameStateID,
			Turn:         turn,
			Phase:        gs.TurnInfo.Phase,
			Step:         gs.TurnInfo.Step,
			ActivePlayer: gs.TurnInfo.ActivePlayer,
			SeatID:       action.SeatID,
			ActionType:   action.Action.ActionType,
			InstanceID:   action.Action.InstanceID,
			CardGrpID:    grpID,
			AbilityGrpID: action.Action.AbilityGrpID,
			ManaCost:     action.Action.ManaCost,
			TimestampMS:  timestampMS,
		})
	}

	for _, annotation := range gs.Annotations {
		if !containsString(annotation.Type, zoneTransferAnnotation) {
			continue
		}

		var fromZone, toZone int
		var category string
		for _, detail := range annotation.Details {
			switch detail.Key {
			case "zone_src":
				if len(detail.ValueInt32) > 0 {
					fromZone = detail.ValueInt32[0]
				}
			case "zone_dest":
				if len(detail.ValueInt32) > 0 {
					toZone = detail.ValueInt32[0]
				}
			case "category":
				if len(detail.ValueString) > 0 {
					category = detail.ValueString[0]
				}
			}
		}

		for _, instanceID := range annotation.AffectedIDs {
			var grpID int
			if facts, ok := m.Objects[instanceID]; ok {
				grpID = facts.GrpID
			}
			m.ZoneTransfers = append(m.ZoneTransfers, ZoneTransfer{
				GameStateID: gs.GameStateID,
				Turn:        turn,
				InstanceID:  instanceID,
				CardGrpID:   grpID,
				FromZone:    fromZone,
				ToZone:      toZone,
				Category:    category,
			})
		}
	}
}

func (t *Tracker) applyDeckEvent(ev *RawEvent) error {
	if t.state.Current == nil {
		return nil
	}

	var payload deckPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return fmt.Errorf("failed to decode deck event: %w", err)
	}

	summary := payload.CourseDeckSummary
	deck := payload.CourseDeck
	if summary == nil {
		summary = payload.Summary
		deck = payload.Deck
	}

	m := t.state.Current
	if summary != nil {
		m.DeckName = summary.Name
		m.DeckID = summary.DeckID
		for _, attr := range summary.Attributes {
			if attr.Name == "Format" {
				m.Format = attr.Value
			}
		}
	}

	if deck != nil {
		m.DeckCards = m.DeckCards[:0]
		for _, card := range deck.MainDeck {
			m.DeckCards = append(m.DeckCards, DeckCard{CardID: card.CardID, Quantity: card.Quantity})
		}
	}

	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
