package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mtga-tracker/internal/cards"
	"mtga-tracker/internal/parser"
)

// ImportCounts reports what one match import wrote.
type ImportCounts struct {
	Actions       int
	LifeChanges   int
	ZoneTransfers int
	Cards         int
}

// ImportMatch persists one match aggregate and its resolved card names inside
// a single transaction: header, deck, actions, life changes, zone transfers,
// and any card rows not already present.
func (db *DB) ImportMatch(ctx context.Context, m *parser.Match, resolved []cards.Resolved) (ImportCounts, error) {
	var counts ImportCounts

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertMatch(ctx, tx, m); err != nil {
		return counts, fmt.Errorf("failed to insert match: %w", err)
	}
	if err := ensureDeck(ctx, tx, m); err != nil {
		return counts, fmt.Errorf("failed to insert deck: %w", err)
	}
	if counts.Cards, err = ensureCards(ctx, tx, resolved); err != nil {
		return counts, fmt.Errorf("failed to insert cards: %w", err)
	}
	if counts.Actions, err = insertActions(ctx, tx, m.MatchID, m.Actions); err != nil {
		return counts, fmt.Errorf("failed to insert actions: %w", err)
	}
	if counts.LifeChanges, err = insertLifeChanges(ctx, tx, m.MatchID, m.LifeSnapshots); err != nil {
		return counts, fmt.Errorf("failed to insert life changes: %w", err)
	}
	if counts.ZoneTransfers, err = insertZoneTransfers(ctx, tx, m.MatchID, m.ZoneTransfers); err != nil {
		return counts, fmt.Errorf("failed to insert zone transfers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, fmt.Errorf("failed to commit: %w", err)
	}
	return counts, nil
}

// ensureCards inserts card rows for resolved ids that missed the database:
// synthesized token names, placeholders, and Omen front-face names. Entries
// that resolved against an existing row are left alone. Returns the number of
// rows written.
func ensureCards(ctx context.Context, q Querier, resolved []cards.Resolved) (int, error) {
	inserted := 0
	for _, r := range resolved {
		if r.Facts != nil {
			continue
		}
		_, err := q.Exec(ctx, `
			INSERT INTO cards (grp_id, name, is_token, object_type, source_grp_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (grp_id) DO NOTHING
		`, r.GrpID, r.Name, r.IsToken, nullString(r.ObjectType), nullInt(r.SourceGrpID))
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
