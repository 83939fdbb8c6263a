package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"mtga-tracker/internal/db"
)

func init() {
	// Load .env from project root
	godotenv.Load("../../.env")
}

func skipIfNoDatabase(t *testing.T) *db.DB {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	database, err := db.New(context.Background())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(database.Close)
	return database
}

// writeFixtureLog writes a minimal but complete Player.log: one match with a
// timestamp line, room config, one game state, and a completion event.
func writeFixtureLog(t *testing.T, matchID string) string {
	t.Helper()

	content := "[UnityCrossThreadLogger]6/19/2025 10:44:45 PM\n" +
		"Initialize engine version: 2022.3.42f1\n" +
		fmt.Sprintf(`{"matchGameRoomStateChangedEvent": {"gameRoomInfo": {"gameRoomConfig": {"matchId": %q, "reservedPlayers": [{"playerName": "Bob", "systemSeatId": 1, "eventId": "Ladder"}, {"playerName": "Alice", "systemSeatId": 2, "eventId": "Ladder"}]}}}}`, matchID) + "\n" +
		`{"greToClientEvent": {"greToClientMessages": [{"type": "GREMessageType_GameStateMessage", "gameStateMessage": {"gameStateId": 1, "turnInfo": {"turnNumber": 1, "phase": "Phase_Main1"}, "players": [{"systemSeatNumber": 1, "lifeTotal": 20}, {"systemSeatNumber": 2, "lifeTotal": 20}], "gameObjects": [{"instanceId": 10, "grpId": 500, "type": "GameObjectType_Card"}], "actions": [{"seatId": 2, "action": {"actionType": "ActionType_Play", "instanceId": 10}}], "annotations": [{"type": ["AnnotationType_ZoneTransfer"], "affectedIds": [10], "details": [{"key": "zone_src", "valueInt32": [31]}, {"key": "zone_dest", "valueInt32": [28]}, {"key": "category", "valueString": ["PlayLand"]}]}]}}]}}` + "\n" +
		fmt.Sprintf(`{"matchGameRoomStateChangedEvent": {"gameRoomInfo": {"stateType": "MatchGameRoomStateType_MatchCompleted", "gameRoomConfig": {"matchId": %q}, "finalMatchResult": {"winningTeamId": 2, "resultList": [{"scope": "MatchScope_Match", "winningTeamId": 2, "reason": "ResultReason_Game"}]}}}}`, matchID) + "\n"

	path := filepath.Join(t.TempDir(), "Player.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture log: %v", err)
	}
	return path
}

// Test: import pipeline end to end
// Verifies parse -> classify -> persist and the skip-existing path
func TestImportLogEndToEnd(t *testing.T) {
	database := skipIfNoDatabase(t)
	ctx := context.Background()

	if err := database.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}

	matchID := fmt.Sprintf("it-import-%d", time.Now().UnixNano())
	logPath := writeFixtureLog(t, matchID)

	service, err := New(ctx, database, db.NewCardStore(database))
	if err != nil {
		t.Fatalf("Failed to create importer: %v", err)
	}

	summary, err := service.ImportLog(ctx, logPath)
	if err != nil {
		t.Fatalf("ImportLog failed: %v", err)
	}
	if summary.MatchesFound != 1 {
		t.Errorf("expected 1 match found, got %d", summary.MatchesFound)
	}
	if summary.MatchesImported != 1 {
		t.Errorf("expected 1 match imported, got %d", summary.MatchesImported)
	}
	if summary.ParseErrors != 0 {
		t.Errorf("expected no parse errors, got %d", summary.ParseErrors)
	}

	t.Run("reimport skips the match", func(t *testing.T) {
		second, err := New(ctx, database, db.NewCardStore(database))
		if err != nil {
			t.Fatalf("Failed to create importer: %v", err)
		}
		summary, err := second.ImportLog(ctx, logPath)
		if err != nil {
			t.Fatalf("ImportLog failed: %v", err)
		}
		if summary.MatchesImported != 0 {
			t.Errorf("expected 0 matches imported, got %d", summary.MatchesImported)
		}
		if summary.MatchesSkipped != 1 {
			t.Errorf("expected 1 match skipped, got %d", summary.MatchesSkipped)
		}
	})

	t.Run("match persisted", func(t *testing.T) {
		exists, err := database.MatchExists(ctx, matchID)
		if err != nil {
			t.Fatalf("MatchExists failed: %v", err)
		}
		if !exists {
			t.Error("expected match to exist")
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "1m30s"},
		{3725 * time.Second, "1h02m05s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
