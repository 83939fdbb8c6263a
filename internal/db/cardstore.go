package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mtga-tracker/internal/cards"
)

// CardStore serves read-only card lookups from the cards table. The table is
// populated out of band by a bulk card-data download; rows written by imports
// are the token/placeholder fallbacks in ensureCards.
type CardStore struct {
	db *DB
}

// NewCardStore returns a card database backed by the cards table.
func NewCardStore(db *DB) *CardStore {
	return &CardStore{db: db}
}

const cardFactsColumns = `grp_id, name, COALESCE(mana_cost, ''), COALESCE(cmc, 0),
	COALESCE(type_line, ''), colors, color_identity, COALESCE(set_code, ''),
	COALESCE(rarity, ''), COALESCE(oracle_text, ''), COALESCE(power, ''),
	COALESCE(toughness, ''), COALESCE(scryfall_id, ''), COALESCE(image_uri, '')`

// Lookup resolves one Arena grp id, returning cards.ErrNotFound on a miss.
func (s *CardStore) Lookup(ctx context.Context, grpID int) (*cards.CardFacts, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+cardFactsColumns+` FROM cards WHERE grp_id = $1`, grpID)

	facts, err := scanCardFacts(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("grp_id %d: %w", grpID, cards.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up card %d: %w", grpID, err)
	}
	return facts, nil
}

// LookupMany resolves a batch of grp ids. Misses are simply absent from the
// result map.
func (s *CardStore) LookupMany(ctx context.Context, grpIDs []int) (map[int]*cards.CardFacts, error) {
	found := make(map[int]*cards.CardFacts, len(grpIDs))
	if len(grpIDs) == 0 {
		return found, nil
	}

	rows, err := s.db.pool.Query(ctx,
		`SELECT `+cardFactsColumns+` FROM cards WHERE grp_id = ANY($1)`, grpIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		facts, err := scanCardFacts(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to look up cards: %w", err)
		}
		found[facts.GrpID] = facts
	}
	return found, rows.Err()
}

func scanCardFacts(row pgx.Row) (*cards.CardFacts, error) {
	var facts cards.CardFacts
	var colors, colorIdentity []byte

	err := row.Scan(&facts.GrpID, &facts.Name, &facts.ManaCost, &facts.CMC,
		&facts.TypeLine, &colors, &colorIdentity, &facts.SetCode,
		&facts.Rarity, &facts.OracleText, &facts.Power,
		&facts.Toughness, &facts.ScryfallID, &facts.ImageURI)
	if err != nil {
		return nil, err
	}

	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &facts.Colors); err != nil {
			return nil, err
		}
	}
	if len(colorIdentity) > 0 {
		if err := json.Unmarshal(colorIdentity, &facts.ColorIdentity); err != nil {
			return nil, err
		}
	}
	return &facts, nil
}
