package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"mtga-tracker/internal/cards"
	"mtga-tracker/internal/db"
	"mtga-tracker/internal/parser"
)

// Bloom filter sizing for the skip-existing precheck. A positive is always
// confirmed against the database, so the false-positive rate only costs a
// query, never a wrongly skipped match.
const (
	bloomEstimatedMatches = 100000
	bloomFalsePositive    = 0.001
)

// Service runs one log import end to end: scan, track, classify, persist.
type Service struct {
	db        *db.DB
	cardDB    cards.Database
	seenMatch *bloom.BloomFilter
	startTime time.Time

	// Stats
	matchesFound    int
	matchesImported int
	matchesSkipped  int
	matchesFailed   int
	cardsInserted   int
	parseErrors     int
}

// New creates an import service. The bloom filter is seeded from every
// already-imported match id so re-imports of the same log are cheap.
func New(ctx context.Context, database *db.DB, cardDB cards.Database) (*Service, error) {
	s := &Service{
		db:        database,
		cardDB:    cardDB,
		seenMatch: bloom.NewWithEstimates(bloomEstimatedMatches, bloomFalsePositive),
	}

	existing, err := database.ExistingMatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing matches: %w", err)
	}
	for _, id := range existing {
		s.seenMatch.AddString(id)
	}
	log.Printf("[Importer] Found %d existing matches", len(existing))

	return s, nil
}

// Summary reports what one importer run did.
type Summary struct {
	MatchesFound    int
	MatchesImported int
	MatchesSkipped  int
	MatchesFailed   int
	CardsInserted   int
	ParseErrors     int
	Elapsed         time.Duration
}

// ImportLog parses one Player.log and persists every match it contains.
// Already-imported matches are skipped; a failure importing one match is
// logged and does not abort the rest.
func (s *Service) ImportLog(ctx context.Context, path string) (*Summary, error) {
	s.startTime = time.Now()

	sessionID, err := s.db.StartImportSession(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to start import session: %w", err)
	}

	matches, parseErrors, err := s.parseLog(path)
	if err != nil {
		s.finishSession(ctx, sessionID, "failed")
		return nil, err
	}
	s.matchesFound = len(matches)
	s.parseErrors = len(parseErrors)
	log.Printf("[Importer] Parsed %d matches (%d non-fatal parse errors)", len(matches), len(parseErrors))

	for _, m := range matches {
		if err := s.importMatch(ctx, m); err != nil {
			s.matchesFailed++
			log.Printf("[Importer] Error importing match %s: %v", m.MatchID, err)
		}
	}

	status := "completed"
	if s.matchesFailed > 0 {
		status = "completed_with_errors"
	}
	s.finishSession(ctx, sessionID, status)

	return &Summary{
		MatchesFound:    s.matchesFound,
		MatchesImported: s.matchesImported,
		MatchesSkipped:  s.matchesSkipped,
		MatchesFailed:   s.matchesFailed,
		CardsInserted:   s.cardsInserted,
		ParseErrors:     s.parseErrors,
		Elapsed:         time.Since(s.startTime),
	}, nil
}

func (s *Service) parseLog(path string) ([]*parser.Match, []parser.ParseError, error) {
	scanner, err := parser.NewScanner(path)
	if err != nil {
		return nil, nil, err
	}
	defer scanner.Close()

	tracker := parser.NewTracker()
	for {
		ev, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		tracker.Apply(ev)
	}

	return tracker.Finish(), tracker.Errors(), nil
}

func (s *Service) importMatch(ctx context.Context, m *parser.Match) error {
	// Bloom precheck first; a hit still has to be confirmed so a false
	// positive can't drop a match.
	if s.seenMatch.TestString(m.MatchID) {
		exists, err := s.db.MatchExists(ctx, m.MatchID)
		if err != nil {
			return fmt.Errorf("failed to check match: %w", err)
		}
		if exists {
			s.matchesSkipped++
			return nil
		}
	}

	deckIDs := make([]int, 0, len(m.DeckCards))
	for _, card := range m.DeckCards {
		deckIDs = append(deckIDs, card.CardID)
	}
	actionGrpIDs := make([]int, 0, len(m.Actions))
	for _, a := range m.Actions {
		actionGrpIDs = append(actionGrpIDs, a.CardGrpID)
	}

	classification := cards.Classify(deckIDs, m.Objects, actionGrpIDs)
	resolved, err := cards.Resolve(ctx, s.cardDB, classification)
	if err != nil {
		return fmt.Errorf("failed to resolve cards: %w", err)
	}

	counts, err := s.db.ImportMatch(ctx, m, resolved)
	if err != nil {
		return err
	}

	s.seenMatch.AddString(m.MatchID)
	s.matchesImported++
	s.cardsInserted += counts.Cards
	log.Printf("[Importer] Imported match %s: %d actions, %d life changes, %d transfers",
		m.MatchID, counts.Actions, counts.LifeChanges, counts.ZoneTransfers)
	return nil
}

func (s *Service) finishSession(ctx context.Context, sessionID int, status string) {
	err := s.db.FinishImportSession(ctx, sessionID, s.matchesImported, s.matchesSkipped, s.parseErrors, status)
	if err != nil {
		log.Printf("[Importer] Error finishing import session: %v", err)
	}
}

// Print writes the run report to stdout.
func (sum *Summary) Print() {
	fmt.Printf("\n=== Import Complete ===\n")
	fmt.Printf("Total time: %s\n", formatDuration(sum.Elapsed))
	fmt.Printf("Matches found: %d\n", sum.MatchesFound)
	fmt.Printf("Matches imported: %d\n", sum.MatchesImported)
	fmt.Printf("Matches skipped (already imported): %d\n", sum.MatchesSkipped)
	if sum.MatchesFailed > 0 {
		fmt.Printf("Matches failed: %d\n", sum.MatchesFailed)
	}
	fmt.Printf("Card rows written: %d\n", sum.CardsInserted)
	fmt.Printf("Non-fatal parse errors: %d\n", sum.ParseErrors)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%02dm%02ds", hours, mins, secs)
}
