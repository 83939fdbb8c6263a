package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"mtga-tracker/internal/db"
	"mtga-tracker/internal/importer"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	// Parse flags
	logPath := flag.String("log", "", "Path to the Arena Player.log file")
	createTables := flag.Bool("create-tables", false, "Create database tables before importing")
	flag.Parse()

	if *logPath == "" {
		if fallback := defaultLogPath(); fallback != "" {
			*logPath = fallback
		}
	}
	if *logPath == "" {
		fmt.Println("Usage:")
		fmt.Println("  importer --log=/path/to/Player.log [--create-tables]")
		fmt.Println()
		fmt.Println("Parses an MTG Arena Player.log, reconstructs match histories, and")
		fmt.Println("persists them. Already-imported matches are skipped.")
		fmt.Println()
		fmt.Println("Database connection is set via DATABASE_URL in .env")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n[Shutdown] Gracefully shutting down...")
		cancel()
	}()

	database, err := db.New(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *createTables {
		if err := database.CreateTables(ctx); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("Database tables ready")
	}

	service, err := importer.New(ctx, database, db.NewCardStore(database))
	if err != nil {
		log.Fatalf("Failed to create importer: %v", err)
	}

	fmt.Printf("Importing %s\n", *logPath)
	summary, err := service.ImportLog(ctx, *logPath)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	summary.Print()
}

// defaultLogPath returns the Arena log location for this platform, or ""
// when it doesn't exist.
func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(home, "AppData", "LocalLow", "Wizards Of The Coast", "MTGA", "Player.log"),
		filepath.Join(home, "Library", "Logs", "Wizards Of The Coast", "MTGA", "Player.log"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
