package db

import (
	"context"
	"fmt"
)

// CreateTables creates the required tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			match_id TEXT UNIQUE NOT NULL,
			player_seat_id INTEGER,
			player_name TEXT,
			player_user_id TEXT,
			opponent_seat_id INTEGER,
			opponent_name TEXT,
			opponent_user_id TEXT,
			event_id TEXT,
			format TEXT,
			match_type TEXT,
			deck_id TEXT,
			result TEXT,
			winning_team_id INTEGER,
			winning_reason TEXT,
			total_turns INTEGER NOT NULL DEFAULT 0,
			start_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ,
			imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS decks (
			deck_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS deck_cards (
			deck_id TEXT NOT NULL REFERENCES decks(deck_id),
			grp_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (deck_id, grp_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			grp_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			mana_cost TEXT,
			cmc DOUBLE PRECISION,
			type_line TEXT,
			colors JSONB,
			color_identity JSONB,
			set_code TEXT,
			rarity TEXT,
			oracle_text TEXT,
			power TEXT,
			toughness TEXT,
			scryfall_id TEXT,
			image_uri TEXT,
			is_token BOOLEAN NOT NULL DEFAULT FALSE,
			object_type TEXT,
			source_grp_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS game_actions (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL,
			game_state_id INTEGER NOT NULL,
			turn INTEGER,
			phase TEXT,
			step TEXT,
			active_player INTEGER,
			seat_id INTEGER,
			action_type TEXT NOT NULL,
			instance_id INTEGER NOT NULL,
			card_grp_id INTEGER,
			ability_grp_id INTEGER,
			mana_cost JSONB,
			timestamp_ms BIGINT,
			UNIQUE (match_id, game_state_id, action_type, instance_id)
		)`,
		`CREATE TABLE IF NOT EXISTS life_changes (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL,
			game_state_id INTEGER NOT NULL,
			turn INTEGER,
			seat_id INTEGER NOT NULL,
			life_total INTEGER NOT NULL,
			change INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS zone_transfers (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL,
			game_state_id INTEGER NOT NULL,
			turn INTEGER,
			instance_id INTEGER NOT NULL,
			card_grp_id INTEGER,
			from_zone INTEGER NOT NULL,
			to_zone INTEGER NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			UNIQUE (match_id, game_state_id, instance_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS import_sessions (
			id SERIAL PRIMARY KEY,
			file_path TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ,
			matches_imported INTEGER NOT NULL DEFAULT 0,
			matches_skipped INTEGER NOT NULL DEFAULT 0,
			parse_errors INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_actions_match ON game_actions(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_life_changes_match ON life_changes(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_zone_transfers_match ON zone_transfers(match_id)`,
	}

	for _, query := range queries {
		if _, err := db.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
