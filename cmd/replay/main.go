package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"mtga-tracker/internal/db"
	"mtga-tracker/internal/replay"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	matchID := flag.String("match", "", "Match id to replay")
	showZones := flag.Bool("zones", false, "Print the inferred zone-role map")
	flag.Parse()

	if *matchID == "" {
		fmt.Println("Usage:")
		fmt.Println("  replay --match=MATCH_ID [--zones]")
		fmt.Println()
		fmt.Println("Renders a stored match's card movements as a readable replay.")
		fmt.Println("Database connection is set via DATABASE_URL in .env")
		os.Exit(1)
	}

	ctx := context.Background()

	database, err := db.New(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	summary, err := database.GetMatchSummary(ctx, *matchID)
	if err != nil {
		log.Fatalf("Failed to load match: %v", err)
	}

	transfers, err := database.GetZoneTransfers(ctx, *matchID)
	if err != nil {
		log.Fatalf("Failed to load zone transfers: %v", err)
	}
	lifeChanges, err := database.GetLifeChanges(ctx, *matchID)
	if err != nil {
		log.Fatalf("Failed to load life changes: %v", err)
	}

	grpIDs := make([]int, 0, len(transfers))
	seen := make(map[int]bool)
	for _, t := range transfers {
		if t.CardGrpID != 0 && !seen[t.CardGrpID] {
			seen[t.CardGrpID] = true
			grpIDs = append(grpIDs, t.CardGrpID)
		}
	}
	names, err := database.CardNames(ctx, grpIDs)
	if err != nil {
		log.Fatalf("Failed to load card names: %v", err)
	}

	steps, inference := replay.Render(transfers, lifeChanges, names)

	fmt.Printf("%s vs %s", summary.PlayerName, summary.OpponentName)
	if summary.Format != "" {
		fmt.Printf(" (%s)", summary.Format)
	}
	fmt.Println()
	if summary.Result != "" {
		fmt.Printf("Result: %s in %d turns\n", summary.Result, summary.TotalTurns)
	}
	fmt.Println()

	if *showZones {
		fmt.Println("Zone roles:")
		for _, t := range transfers {
			for _, zone := range []int{t.FromZone, t.ToZone} {
				if role, ok := inference.Roles[zone]; ok {
					fmt.Printf("  zone %d: %s\n", zone, role)
					delete(inference.Roles, zone)
				}
			}
		}
		fmt.Println()
	}

	lastTurn := -1
	for _, step := range steps {
		if step.Turn != lastTurn {
			fmt.Printf("--- Turn %d ---\n", step.Turn)
			lastTurn = step.Turn
		}
		line := fmt.Sprintf("%s %s", step.Card, step.Verb)
		if step.Actor != "" {
			line = fmt.Sprintf("[%s] %s", step.Actor, line)
		}
		fmt.Printf("  %s  (you %d, opponent %d)\n", line, step.YourLife, step.OpponentLife)
	}
	if len(steps) == 0 {
		fmt.Println("No replayable card movements recorded for this match.")
	}
}
