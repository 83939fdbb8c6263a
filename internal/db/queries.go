package db

import (
	"context"
	"fmt"

	"mtga-tracker/internal/parser"
)

// significantActionTypes filters the legal-action firehose down to actions a
// player actually took or could meaningfully take; everything else is noise.
var significantActionTypes = map[string]bool{
	"ActionType_Cast":          true,
	"ActionType_Play":          true,
	"ActionType_Attack":        true,
	"ActionType_Block":         true,
	"ActionType_Activate":      true,
	"ActionType_Activate_Mana": true,
	"ActionType_Resolution":    true,
}

// InsertMatch inserts a match header if it doesn't exist
func (db *DB) InsertMatch(ctx context.Context, m *parser.Match) error {
	return insertMatch(ctx, db.pool, m)
}

func insertMatch(ctx context.Context, q Querier, m *parser.Match) error {
	_, err := q.Exec(ctx, `
		INSERT INTO matches (
			match_id, player_seat_id, player_name, player_user_id,
			opponent_seat_id, opponent_name, opponent_user_id,
			event_id, format, match_type, deck_id, result,
			winning_team_id, winning_reason, total_turns, start_time, end_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (match_id) DO NOTHING
	`, m.MatchID, m.PlayerSeatID, m.PlayerName, m.PlayerUserID,
		m.OpponentSeatID, m.OpponentName, m.OpponentUserID,
		m.EventID, m.Format, m.MatchType, nullString(m.DeckID), nullString(m.Result),
		m.WinningTeamID, m.WinningReason, m.TotalTurns, nullTime(m.StartTime), nullTime(m.EndTime))
	return err
}

// MatchExists checks if a match already exists in the database
func (db *DB) MatchExists(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM matches WHERE match_id = $1)
	`, matchID).Scan(&exists)
	return exists, err
}

// ExistingMatchIDs returns every imported match id
func (db *DB) ExistingMatchIDs(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT match_id FROM matches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMatchCount returns the total number of matches
func (db *DB) GetMatchCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

func ensureDeck(ctx context.Context, q Querier, m *parser.Match) error {
	if m.DeckID == "" {
		return nil
	}

	_, err := q.Exec(ctx, `
		INSERT INTO decks (deck_id, name)
		VALUES ($1, $2)
		ON CONFLICT (deck_id) DO UPDATE SET name = EXCLUDED.name
	`, m.DeckID, m.DeckName)
	if err != nil {
		return err
	}

	for _, card := range m.DeckCards {
		_, err := q.Exec(ctx, `
			INSERT INTO deck_cards (deck_id, grp_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (deck_id, grp_id) DO UPDATE SET quantity = EXCLUDED.quantity
		`, m.DeckID, card.CardID, card.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

// insertActions persists a match's significant actions, deduplicated by
// (gameStateId, actionType, instanceId). Returns the number inserted.
func insertActions(ctx context.Context, q Querier, matchID string, actions []parser.Action) (int, error) {
	seen := make(map[parser.ActionKey]bool)
	inserted := 0

	for _, a := range actions {
		if !significantActionTypes[a.ActionType] {
			continue
		}
		key := a.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		_, err := q.Exec(ctx, `
			INSERT INTO game_actions (
				match_id, game_state_id, turn, phase, step, active_player,
				seat_id, action_type, instance_id, card_grp_id, ability_grp_id,
				mana_cost, timestamp_ms
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (match_id, game_state_id, action_type, instance_id) DO NOTHING
		`, matchID, a.GameStateID, a.Turn, a.Phase, a.Step, a.ActivePlayer,
			a.SeatID, a.ActionType, a.InstanceID, nullInt(a.CardGrpID), nullInt(a.AbilityGrpID),
			nullJSON(a.ManaCost), a.TimestampMS)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// insertLifeChanges diffs a match's raw life snapshots and persists the
// result: first sighting per seat with a null change, no zero-change rows.
func insertLifeChanges(ctx context.Context, q Querier, matchID string, snapshots []parser.LifeSnapshot) (int, error) {
	changes := parser.DiffLifeChanges(snapshots)
	for _, lc := range changes {
		_, err := q.Exec(ctx, `
			INSERT INTO life_changes (match_id, game_state_id, turn, seat_id, life_total, change)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, matchID, lc.GameStateID, lc.Turn, lc.SeatID, lc.LifeTotal, lc.Change)
		if err != nil {
			return 0, err
		}
	}
	return len(changes), nil
}

// insertZoneTransfers persists a match's zone transfers, deduplicated by
// (gameStateId, instanceId, category). An unresolved card reference is stored
// as NULL, never 0.
func insertZoneTransfers(ctx context.Context, q Querier, matchID string, transfers []parser.ZoneTransfer) (int, error) {
	seen := make(map[parser.TransferKey]bool)
	inserted := 0

	for _, t := range transfers {
		key := t.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		_, err := q.Exec(ctx, `
			INSERT INTO zone_transfers (
				match_id, game_state_id, turn, instance_id, card_grp_id,
				from_zone, to_zone, category
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (match_id, game_state_id, instance_id, category) DO NOTHING
		`, matchID, t.GameStateID, t.Turn, t.InstanceID, nullInt(t.CardGrpID),
			t.FromZone, t.ToZone, t.Category)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// GetZoneTransfers returns one match's zone transfers in insertion order
func (db *DB) GetZoneTransfers(ctx context.Context, matchID string) ([]parser.ZoneTransfer, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT game_state_id, COALESCE(turn, 0), instance_id, COALESCE(card_grp_id, 0),
			from_zone, to_zone, category
		FROM zone_transfers
		WHERE match_id = $1
		ORDER BY id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []parser.ZoneTransfer
	for rows.Next() {
		var t parser.ZoneTransfer
		if err := rows.Scan(&t.GameStateID, &t.Turn, &t.InstanceID, &t.CardGrpID,
			&t.FromZone, &t.ToZone, &t.Category); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// GetLifeChanges returns one match's life changes in insertion order
func (db *DB) GetLifeChanges(ctx context.Context, matchID string) ([]parser.LifeChange, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT game_state_id, COALESCE(turn, 0), seat_id, life_total, change
		FROM life_changes
		WHERE match_id = $1
		ORDER BY id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []parser.LifeChange
	for rows.Next() {
		var lc parser.LifeChange
		if err := rows.Scan(&lc.GameStateID, &lc.Turn, &lc.SeatID, &lc.LifeTotal, &lc.Change); err != nil {
			return nil, err
		}
		changes = append(changes, lc)
	}
	return changes, rows.Err()
}

// MatchSummary is the header shown before a rendered replay.
type MatchSummary struct {
	MatchID      string
	PlayerName   string
	OpponentName string
	Format       string
	Result       string
	TotalTurns   int
}

// GetMatchSummary returns one match's header fields
func (db *DB) GetMatchSummary(ctx context.Context, matchID string) (*MatchSummary, error) {
	var s MatchSummary
	err := db.pool.QueryRow(ctx, `
		SELECT match_id, COALESCE(player_name, ''), COALESCE(opponent_name, ''),
			COALESCE(format, ''), COALESCE(result, ''), total_turns
		FROM matches
		WHERE match_id = $1
	`, matchID).Scan(&s.MatchID, &s.PlayerName, &s.OpponentName, &s.Format, &s.Result, &s.TotalTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	return &s, nil
}

// CardNames returns a grp_id -> name map for the given ids
func (db *DB) CardNames(ctx context.Context, grpIDs []int) (map[int]string, error) {
	names := make(map[int]string, len(grpIDs))
	if len(grpIDs) == 0 {
		return names, nil
	}

	rows, err := db.pool.Query(ctx, `SELECT grp_id, name FROM cards WHERE grp_id = ANY($1)`, grpIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// StartImportSession records the beginning of an importer run
func (db *DB) StartImportSession(ctx context.Context, filePath string) (int, error) {
	var id int
	err := db.pool.QueryRow(ctx, `
		INSERT INTO import_sessions (file_path) VALUES ($1) RETURNING id
	`, filePath).Scan(&id)
	return id, err
}

// FinishImportSession closes an importer run with its final counters
func (db *DB) FinishImportSession(ctx context.Context, id, imported, skipped, parseErrors int, status string) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE import_sessions
		SET finished_at = now(), matches_imported = $2, matches_skipped = $3,
			parse_errors = $4, status = $5
		WHERE id = $1
	`, id, imported, skipped, parseErrors, status)
	return err
}
