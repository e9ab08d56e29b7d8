package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/training-api/internal/config"
)

// Утилита для ручного управления миграциями. Сервер применяет миграции сам
// при старте; эта команда нужна для отката и для чистки dirty-состояния
// после упавшей миграции.
func main() {
	var (
		down  = flag.Bool("down", false, "rollback the last migration")
		force = flag.Int("force", -1, "force schema version to clean a dirty state")
	)
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *force >= 0:
		fmt.Printf("Forcing migration version to %d...\n", *force)
		if err := m.Force(*force); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Println("Dirty state cleaned.")
	case *down:
		fmt.Println("Rolling back the last migration...")
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Println("Rollback applied.")
	default:
		fmt.Println("Applying pending migrations...")
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Println("Schema is already up to date.")
				return
			}
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations applied.")
	}
}
