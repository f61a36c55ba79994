package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/datapilot/datapilot/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	fmt.Printf("Migrating catalog at %s...\n", cfg.Catalog.Path)

	m, err := migrate.New("file://migrations", "sqlite://"+cfg.Catalog.Path)
	if err != nil {
		panic(fmt.Sprintf("Failed to open migrations: %v", err))
	}
	defer m.Close()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		panic(fmt.Sprintf("Unknown direction: %s (use up or down)", direction))
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("Catalog schema already up to date")
		return
	}
	if err != nil {
		panic(fmt.Sprintf("Migration failed: %v", err))
	}

	fmt.Println("Catalog migrated successfully")
}
