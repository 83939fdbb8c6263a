package cards

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mtga-tracker/internal/parser"
)

var colorLabels = map[string]string{
	"CardColor_White": "White",
	"CardColor_Blue":  "Blue",
	"CardColor_Black": "Black",
	"CardColor_Red":   "Red",
	"CardColor_Green": "Green",
}

var cardTypeLabels = map[string]string{
	"CardType_Creature":     "Creature",
	"CardType_Artifact":     "Artifact",
	"CardType_Enchantment":  "Enchantment",
	"CardType_Land":         "Land",
	"CardType_Planeswalker": "Planeswalker",
	"CardType_Instant":      "Instant",
	"CardType_Sorcery":      "Sorcery",
}

// TokenName builds a human-readable name for a token from its game-state
// facts, e.g. "1/1 Red Goblin Creature Token" or "Lander Artifact Token".
// Emblems are named "Emblem" with no other parts.
func TokenName(obj parser.GameObject) string {
	if obj.Type == objectTypeEmblem {
		return "Emblem"
	}

	var parts []string
	if obj.Power != nil && obj.Toughness != nil {
		parts = append(parts, fmt.Sprintf("%d/%d", *obj.Power, *obj.Toughness))
	}
	for _, c := range obj.Colors {
		if label, ok := colorLabels[c]; ok {
			parts = append(parts, label)
		} else {
			parts = append(parts, c)
		}
	}
	for _, s := range obj.Subtypes {
		parts = append(parts, strings.TrimPrefix(s, "SubType_"))
	}
	for _, t := range obj.CardTypes {
		if label, ok := cardTypeLabels[t]; ok {
			parts = append(parts, label)
		} else {
			parts = append(parts, strings.TrimPrefix(t, "CardType_"))
		}
	}
	parts = append(parts, "Token")
	return strings.Join(parts, " ")
}

// Resolved is the final name record for one grp id.
type Resolved struct {
	GrpID      int
	Name       string
	Facts      *CardFacts // non-nil when a database lookup hit
	ObjectType string     // empty for real cards
	IsToken    bool
	// SourceGrpID is the Omen front-face id when the id - 1 retry supplied
	// the name, 0 otherwise.
	SourceGrpID int
}

// Resolve names every classified grp id against the card database.
//
// Real cards that miss fall back to "Unknown Card (N)". Tokens and emblems
// never hit the database; their names are synthesized. Other special objects
// (adventure faces, alternate sides, Omens) try a lookup first; on a miss an
// Omen retries at id - 1 for its front face and, when the front face's name
// contains " // ", takes the text after the separator. Everything else falls
// back to a "[Type] (N)" placeholder. Lookup misses are never errors.
func Resolve(ctx context.Context, db Database, c Classification) ([]Resolved, error) {
	realIDs := make([]int, 0, len(c.RealCardIDs))
	for id := range c.RealCardIDs {
		realIDs = append(realIDs, id)
	}
	sort.Ints(realIDs)

	specialIDs := make([]int, 0, len(c.SpecialObjects))
	for id := range c.SpecialObjects {
		specialIDs = append(specialIDs, id)
	}
	sort.Ints(specialIDs)

	resolved := make([]Resolved, 0, len(realIDs)+len(specialIDs))

	found, err := db.LookupMany(ctx, realIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cards: %w", err)
	}
	for _, id := range realIDs {
		if facts := found[id]; facts != nil {
			resolved = append(resolved, Resolved{GrpID: id, Name: facts.Name, Facts: facts})
			continue
		}
		resolved = append(resolved, Resolved{GrpID: id, Name: fmt.Sprintf("Unknown Card (%d)", id)})
	}

	for _, id := range specialIDs {
		obj := c.SpecialObjects[id]
		r, err := resolveSpecial(ctx, db, id, obj)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	return resolved, nil
}

func resolveSpecial(ctx context.Context, db Database, id int, obj parser.GameObject) (Resolved, error) {
	if tokenObjectTypes[obj.Type] {
		return Resolved{GrpID: id, Name: TokenName(obj), ObjectType: obj.Type, IsToken: true}, nil
	}

	facts, err := db.Lookup(ctx, id)
	if err == nil {
		return Resolved{GrpID: id, Name: facts.Name, Facts: facts, ObjectType: obj.Type}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Resolved{}, fmt.Errorf("failed to look up object %d: %w", id, err)
	}

	if obj.Type == objectTypeOmen {
		front, err := db.Lookup(ctx, id-1)
		if err == nil && strings.Contains(front.Name, " // ") {
			parts := strings.SplitN(front.Name, " // ", 2)
			return Resolved{GrpID: id, Name: parts[1], ObjectType: obj.Type, SourceGrpID: id - 1}, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Resolved{}, fmt.Errorf("failed to look up object %d: %w", id-1, err)
		}
	}

	label := "Unknown"
	if obj.Type != "" {
		label = strings.TrimPrefix(obj.Type, "GameObjectType_")
	}
	return Resolved{GrpID: id, Name: fmt.Sprintf("[%s] (%d)", label, id), ObjectType: obj.Type}, nil
}
