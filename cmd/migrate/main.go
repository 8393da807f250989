package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"PerpIndexer/internal/config"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/persistence"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <up|down|status>")
		fmt.Println("  up     - apply all pending migrations")
		fmt.Println("  down   - roll back the last migration")
		fmt.Println("  status - list migrations and whether they are applied")
		fmt.Println()
		fmt.Println("Environment:")
		fmt.Println("  PERP_POSTGRES_DSN    - Postgres connection string")
		fmt.Println("  PERP_MIGRATIONS_DIR  - path to migrations directory (default: migrations)")
		fmt.Println("  PERP_CONFIG_FILE     - optional YAML config overlay")
		os.Exit(1)
	}

	cfg := config.Default()
	if path := os.Getenv("PERP_CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("FATAL: open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, cfg.MigrationsDir).
		WithLogger(observability.NewLoggerWithLevel("migrate", observability.ParseLogLevel(cfg.LogLevel)))

	switch os.Args[1] {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: migrate up: %v", err)
		}
		log.Println("INFO: all migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			log.Fatalf("FATAL: migrate down: %v", err)
		}
		log.Println("INFO: last migration rolled back")

	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("FATAL: migrate status: %v", err)
		}
		for _, st := range statuses {
			mark := "pending"
			if st.Applied {
				mark = "applied"
			}
			fmt.Printf("%s  %-8s %s\n", st.Version, mark, st.Name)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (use 'up', 'down' or 'status')\n", os.Args[1])
		os.Exit(1)
	}
}
