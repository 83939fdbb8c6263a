package cards

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Database lookups for grp ids with no card row.
var ErrNotFound = errors.New("card not found")

// CardFacts is the card-database row for one Arena grp id.
type CardFacts struct {
	GrpID         int
	Name          string
	ManaCost      string
	CMC           float64
	TypeLine      string
	Colors        []string
	ColorIdentity []string
	SetCode       string
	Rarity        string
	OracleText    string
	Power         string
	Toughness     string
	ScryfallID    string
	ImageURI      string
}

// Database is the read-only card lookup boundary. Implementations resolve
// Arena grp ids to card facts; misses return ErrNotFound from Lookup and are
// simply absent from the LookupMany result. Retry and timeout behavior belong
// to the implementation, not to callers.
type Database interface {
	Lookup(ctx context.Context, grpID int) (*CardFacts, error)
	LookupMany(ctx context.Context, grpIDs []int) (map[int]*CardFacts, error)
}
