package parser

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// EventKind identifies one of the recognized log event shapes.
type EventKind string

const (
	KindMatchState EventKind = "match_state"
	KindGREEvent   EventKind = "gre_event"
	KindCourseDeck EventKind = "course_deck"
	KindDeckUpsert EventKind = "deck_upsert"
	KindDeckSet    EventKind = "deck_set"
	KindGameState  EventKind = "game_state"
)

// RawEvent is one classified JSON payload lifted out of the log.
type RawEvent struct {
	Kind EventKind
	Data []byte // the raw JSON payload

	// TimestampMS is the payload's own epoch-millisecond timestamp, 0 when
	// the payload carried none.
	TimestampMS int64

	// LoggerTime is the sticky timestamp from the most recent
	// UnityCrossThreadLogger line at the point this event was scanned.
	// Zero when no logger timestamp has been seen yet.
	LoggerTime time.Time

	Line int
}

// Time returns the best-known wall-clock time for the event: its own
// timestamp when present, otherwise the sticky logger timestamp.
func (e *RawEvent) Time() time.Time {
	if e.TimestampMS > 0 {
		return time.UnixMilli(e.TimestampMS).UTC()
	}
	return e.LoggerTime
}

var (
	deckUpsertMarker = []byte("DeckUpsertDeckV2")
	deckSetMarker    = []byte("EventSetDeckV2")
	gameStateMarker  = []byte("gameStateMessage")
)

// classify inspects a parsed payload's top-level keys against a fixed
// priority list and returns the event, or nil when the payload matches no
// recognized shape. Unrecognized payloads are dropped silently.
func classify(data []byte, line int, loggerTime time.Time) *RawEvent {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil
	}

	var kind EventKind
	switch {
	case hasKey(top, "matchGameRoomStateChangedEvent"):
		kind = KindMatchState
	case hasKey(top, "greToClientEvent"):
		kind = KindGREEvent
	case hasKey(top, "CourseDeck") || hasKey(top, "CourseDeckSummary"):
		kind = KindCourseDeck
	case hasKey(top, "request") && bytes.Contains(data, deckUpsertMarker):
		kind = KindDeckUpsert
	case hasKey(top, "request") && bytes.Contains(data, deckSetMarker):
		kind = KindDeckSet
	case bytes.Contains(data, gameStateMarker):
		kind = KindGameState
	default:
		return nil
	}

	return &RawEvent{
		Kind:        kind,
		Data:        data,
		TimestampMS: parseTimestamp(top["timestamp"]),
		LoggerTime:  loggerTime,
		Line:        line,
	}
}

func hasKey(top map[string]json.RawMessage, key string) bool {
	_, ok := top[key]
	return ok
}

// parseTimestamp handles the payload "timestamp" field, which Arena emits
// either as a number or a quoted numeric string.
func parseTimestamp(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	s := string(bytes.Trim(raw, `"`))
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// Typed payload shapes for the recognized event kinds. These are the closed
// set of structures the tracker decodes into; anything else in a payload is
// ignored rather than partially applied.

type matchStatePayload struct {
	MatchGameRoomStateChangedEvent struct {
		GameRoomInfo struct {
			StateType      string `json:"stateType"`
			GameRoomConfig struct {
				MatchID         string `json:"matchId"`
				ReservedPlayers []struct {
					PlayerName   string `json:"playerName"`
					UserID       string `json:"userId"`
					SystemSeatID int    `json:"systemSeatId"`
					EventID      string `json:"eventId"`
				} `json:"reservedPlayers"`
			} `json:"gameRoomConfig"`
			FinalMatchResult struct {
				WinningTeamID int `json:"winningTeamId"`
				ResultList    []struct {
					Scope         string `json:"scope"`
					WinningTeamID int    `json:"winningTeamId"`
					Reason        string `json:"reason"`
				} `json:"resultList"`
			} `json:"finalMatchResult"`
		} `json:"gameRoomInfo"`
	} `json:"matchGameRoomStateChangedEvent"`
}

type grePayload struct {
	GreToClientEvent struct {
		GreToClientMessages []greMessage `json:"greToClientMessages"`
	} `json:"greToClientEvent"`
}

type greMessage struct {
	Type             string           `json:"type"`
	GameStateMessage gameStateMessage `json:"gameStateMessage"`
}

type gameStateMessage struct {
	GameStateID int `json:"gameStateId"`
	TurnInfo    struct {
		TurnNumber   int    `json:"turnNumber"`
		Phase        string `json:"phase"`
		Step         string `json:"step"`
		ActivePlayer int    `json:"activePlayer"`
	} `json:"turnInfo"`
	GameInfo struct {
		SuperFormat string `json:"superFormat"`
		Type        string `json:"type"`
	} `json:"gameInfo"`
	Players []struct {
		SystemSeatNumber int  `json:"systemSeatNumber"`
		LifeTotal        *int `json:"lifeTotal"`
	} `json:"players"`
	GameObjects []struct {
		InstanceID       int      `json:"instanceId"`
		GrpID            int      `json:"grpId"`
		Type             string   `json:"type"`
		CardTypes        []string `json:"cardTypes"`
		Subtypes         []string `json:"subtypes"`
		Color            []string `json:"color"`
		Power            ptValue  `json:"power"`
		Toughness        ptValue  `json:"toughness"`
		OwnerSeatID      int      `json:"ownerSeatId"`
		ControllerSeatID int      `json:"controllerSeatId"`
	} `json:"gameObjects"`
	Actions []struct {
		SeatID int `json:"seatId"`
		Action struct {
			ActionType   string          `json:"actionType"`
			InstanceID   int             `json:"instanceId"`
			GrpID        int             `json:"grpId"`
			AbilityGrpID int             `json:"abilityGrpId"`
			ManaCost     json.RawMessage `json:"manaCost"`
		} `json:"action"`
	} `json:"actions"`
	Annotations []struct {
		Type        []string           `json:"type"`
		AffectedIDs []int              `json:"affectedIds"`
		Details     []annotationDetail `json:"details"`
	} `json:"annotations"`
}

type ptValue struct {
	Value *int `json:"value"`
}

type annotationDetail struct {
	Key         string   `json:"key"`
	ValueInt32  []int    `json:"valueInt32"`
	ValueString []string `json:"valueString"`
}

type deckPayload struct {
	CourseDeckSummary *deckSummary `json:"CourseDeckSummary"`
	CourseDeck        *deckList    `json:"CourseDeck"`
	Summary           *deckSummary `json:"Summary"`
	Deck              *deckList    `json:"Deck"`
}

type deckSummary struct {
	Name       string `json:"Name"`
	DeckID     string `json:"DeckId"`
	Attributes []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"Attributes"`
}

type deckList struct {
	MainDeck []struct {
		CardID   int `json:"cardId"`
		Quantity int `json:"quantity"`
	} `json:"MainDeck"`
}
