package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchStateEvent(matchID string) *RawEvent {
	data := fmt.Sprintf(`{
		"matchGameRoomStateChangedEvent": {
			"gameRoomInfo": {
				"gameRoomConfig": {
					"matchId": %q,
					"reservedPlayers": [
						{"playerName": "Bob", "userId": "u1", "systemSeatId": 1, "eventId": "Ladder"},
						{"playerName": "Alice", "userId": "u2", "systemSeatId": 2, "eventId": "Ladder"}
					]
				}
			}
		}
	}`, matchID)
	return &RawEvent{Kind: KindMatchState, Data: []byte(data), Line: 1}
}

func completionEvent(matchID string, winningTeam int) *RawEvent {
	data := fmt.Sprintf(`{
		"matchGameRoomStateChangedEvent": {
			"gameRoomInfo": {
				"stateType": "MatchGameRoomStateType_MatchCompleted",
				"gameRoomConfig": {"matchId": %q},
				"finalMatchResult": {
					"winningTeamId": %d,
					"resultList": [
						{"scope": "MatchScope_Game", "winningTeamId": %d},
						{"scope": "MatchScope_Match", "winningTeamId": %d, "reason": "ResultReason_Game"}
					]
				}
			}
		}
	}`, matchID, winningTeam, winningTeam, winningTeam)
	return &RawEvent{Kind: KindMatchState, Data: []byte(data), Line: 2}
}

func greEvent(body string) *RawEvent {
	data := fmt.Sprintf(`{
		"greToClientEvent": {
			"greToClientMessages": [
				{"type": "GREMessageType_GameStateMessage", "gameStateMessage": %s}
			]
		}
	}`, body)
	return &RawEvent{Kind: KindGREEvent, Data: []byte(data), Line: 3}
}

func TestTrackerWinLoss(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(completionEvent("m1", 2))

	matches := tr.Finish()
	require.Len(t, matches, 1)
	assert.Empty(t, tr.Errors())

	m := matches[0]
	assert.Equal(t, "m1", m.MatchID)
	assert.Equal(t, "Alice", m.PlayerName)
	assert.Equal(t, "Bob", m.OpponentName)
	assert.Equal(t, 2, m.PlayerSeatID)
	assert.Equal(t, 1, m.OpponentSeatID)
	assert.Equal(t, "Ladder", m.EventID)
	assert.Equal(t, ResultWin, m.Result)
	assert.Equal(t, "ResultReason_Game", m.WinningReason)
}

func TestTrackerLossAndUnsetResult(t *testing.T) {
	t.Run("opponent wins", func(t *testing.T) {
		tr := NewTracker()
		tr.Apply(matchStateEvent("m1"))
		tr.Apply(completionEvent("m1", 1))

		matches := tr.Finish()
		require.Len(t, matches, 1)
		assert.Equal(t, ResultLoss, matches[0].Result)
	})

	t.Run("unterminated match keeps unset result", func(t *testing.T) {
		tr := NewTracker()
		tr.Apply(matchStateEvent("m1"))

		matches := tr.Finish()
		require.Len(t, matches, 1)
		assert.Empty(t, matches[0].Result)
	})
}

func TestTrackerOneAggregatePerMatchID(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(completionEvent("m1", 2))
	tr.Apply(matchStateEvent("m2"))

	matches := tr.Finish()
	require.Len(t, matches, 2)
	assert.Equal(t, "m1", matches[0].MatchID)
	assert.Equal(t, "m2", matches[1].MatchID)
}

func TestTrackerStickyTurnAndTotalTurns(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(greEvent(`{"gameStateId": 1, "turnInfo": {"turnNumber": 3}}`))
	// No turnInfo: reuse turn 3.
	tr.Apply(greEvent(`{"gameStateId": 2, "players": [{"systemSeatNumber": 2, "lifeTotal": 20}]}`))
	tr.Apply(greEvent(`{"gameStateId": 3, "turnInfo": {"turnNumber": 5}}`))

	matches := tr.Finish()
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, 5, m.TotalTurns)
	require.Len(t, m.LifeSnapshots, 1)
	assert.Equal(t, 3, m.LifeSnapshots[0].Turn)
	assert.Equal(t, 20, m.LifeSnapshots[0].LifeTotal)
}

func TestTrackerObjectFactsLastWriteWins(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(greEvent(`{"gameStateId": 1, "gameObjects": [
		{"instanceId": 10, "grpId": 500, "type": "GameObjectType_Card", "cardTypes": ["CardType_Creature"]}
	]}`))
	tr.Apply(greEvent(`{"gameStateId": 2, "gameObjects": [
		{"instanceId": 10, "grpId": 500, "type": "GameObjectType_Card", "power": {"value": 2}, "toughness": {"value": 2}}
	]}`))

	matches := tr.Finish()
	require.Len(t, matches, 1)

	obj, ok := matches[0].Objects[10]
	require.True(t, ok)
	assert.Equal(t, 500, obj.GrpID)
	// Second sighting replaced the first wholesale.
	assert.Empty(t, obj.CardTypes)
	require.NotNil(t, obj.Power)
	assert.Equal(t, 2, *obj.Power)
}

func TestTrackerActionsCarryContextAndKey(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(greEvent(`{"gameStateId": 7,
		"turnInfo": {"turnNumber": 2, "phase": "Phase_Main1", "step": "Step_Upkeep", "activePlayer": 2},
		"gameObjects": [{"instanceId": 10, "grpId": 500, "type": "GameObjectType_Card"}],
		"actions": [
			{"seatId": 2, "action": {"actionType": "ActionType_Cast", "instanceId": 10}},
			{"seatId": 2, "action": {"actionType": "ActionType_Play", "instanceId": 11, "grpId": 600}}
		]}`))

	matches := tr.Finish()
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Actions, 2)

	cast := matches[0].Actions[0]
	assert.Equal(t, ActionKey{GameStateID: 7, ActionType: "ActionType_Cast", InstanceID: 10}, cast.Key())
	assert.Equal(t, 2, cast.Turn)
	assert.Equal(t, "Phase_Main1", cast.Phase)
	// grpId backfilled from the instance facts.
	assert.Equal(t, 500, cast.CardGrpID)

	play := matches[0].Actions[1]
	assert.Equal(t, 600, play.CardGrpID)
}

func TestTrackerZoneTransfersFromAnnotations(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(greEvent(`{"gameStateId": 9, "turnInfo": {"turnNumber": 4},
		"gameObjects": [{"instanceId": 10, "grpId": 500, "type": "GameObjectType_Card"}],
		"annotations": [
			{
				"type": ["AnnotationType_ZoneTransfer"],
				"affectedIds": [10, 11],
				"details": [
					{"key": "zone_src", "valueInt32": [31]},
					{"key": "zone_dest", "valueInt32": [28]},
					{"key": "category", "valueString": ["PlayLand"]}
				]
			},
			{"type": ["AnnotationType_DamageDealt"], "affectedIds": [10]}
		]}`))

	matches := tr.Finish()
	require.Len(t, matches, 1)
	require.Len(t, matches[0].ZoneTransfers, 2)

	first := matches[0].ZoneTransfers[0]
	assert.Equal(t, ZoneTransfer{
		GameStateID: 9, Turn: 4, InstanceID: 10, CardGrpID: 500,
		FromZone: 31, ToZone: 28, Category: "PlayLand",
	}, first)
	assert.Equal(t, TransferKey{GameStateID: 9, InstanceID: 10, Category: "PlayLand"}, first.Key())

	// Instance 11 was never sighted: unresolved reference.
	assert.Equal(t, 0, matches[0].ZoneTransfers[1].CardGrpID)
}

func TestTrackerDeckEvents(t *testing.T) {
	tr := NewTracker()
	tr.Apply(matchStateEvent("m1"))
	tr.Apply(&RawEvent{Kind: KindCourseDeck, Line: 4, Data: []byte(`{
		"CourseDeckSummary": {
			"Name": "Mono Red",
			"DeckId": "deck-1",
			"Attributes": [{"name": "Format", "value": "Standard"}]
		},
		"CourseDeck": {
			"MainDeck": [
				{"cardId": 500, "quantity": 4},
				{"cardId": 501, "quantity": 2}
			]
		}
	}`)})

	matches := tr.Finish()
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "Mono Red", m.DeckName)
	assert.Equal(t, "deck-1", m.DeckID)
	assert.Equal(t, "Standard", m.Format)
	assert.Equal(t, []DeckCard{{CardID: 500, Quantity: 4}, {CardID: 501, Quantity: 2}}, m.DeckCards)
}

func TestTrackerErrorIsolation(t *testing.T) {
	tr := NewTracker()
	tr.Apply(&RawEvent{Kind: KindMatchState, Data: []byte(`{not json`), Line: 12})
	tr.Apply(matchStateEvent("m1"))

	matches := tr.Finish()
	require.Len(t, matches, 1)

	errs := tr.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, KindMatchState, errs[0].Kind)
	assert.Equal(t, 12, errs[0].Line)
}

func TestTrackerIgnoresGREBeforeMatchOpens(t *testing.T) {
	tr := NewTracker()
	tr.Apply(greEvent(`{"gameStateId": 1, "turnInfo": {"turnNumber": 1}}`))

	assert.Empty(t, tr.Finish())
	assert.Empty(t, tr.Errors())
}

func TestDiffLifeChanges(t *testing.T) {
	snapshots := []LifeSnapshot{
		{GameStateID: 1, Turn: 1, SeatID: 1, LifeTotal: 20},
		{GameStateID: 1, Turn: 1, SeatID: 2, LifeTotal: 20},
		{GameStateID: 2, Turn: 2, SeatID: 1, LifeTotal: 20}, // unchanged: dropped
		{GameStateID: 3, Turn: 2, SeatID: 2, LifeTotal: 17},
		{GameStateID: 4, Turn: 3, SeatID: 2, LifeTotal: 19},
	}

	changes := DiffLifeChanges(snapshots)
	require.Len(t, changes, 4)

	assert.Nil(t, changes[0].Change)
	assert.Nil(t, changes[1].Change)

	require.NotNil(t, changes[2].Change)
	assert.Equal(t, -3, *changes[2].Change)
	assert.Equal(t, 17, changes[2].LifeTotal)

	require.NotNil(t, changes[3].Change)
	assert.Equal(t, 2, *changes[3].Change)

	for _, lc := range changes {
		if lc.Change != nil {
			assert.NotZero(t, *lc.Change)
		}
	}
}
