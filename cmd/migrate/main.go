package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/noah-isme/hostel-out-api/pkg/config"
	"github.com/noah-isme/hostel-out-api/pkg/database"
)

const usage = `usage: migrate [-path file://migrations] <command>

commands:
  up          apply every pending migration
  down [N]    revert the last N migrations (default 1)
  version     print the applied schema version`

func main() {
	path := flag.String("path", "", "migrations source URL (overrides MIGRATIONS_PATH)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *path != "" {
		cfg.Database.MigrationsPath = *path
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "up":
		if err := database.Migrate(cfg.Database); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				log.Fatalf("invalid step count %q", args[1])
			}
		}
		if err := database.Rollback(cfg.Database, steps); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}
		fmt.Printf("reverted %d migration(s)\n", steps)
	case "version":
		version, dirty, err := database.Version(cfg.Database)
		if err != nil {
			log.Fatalf("read version failed: %v", err)
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
