package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/padbank/padbank-backend/migrations"
	"github.com/padbank/padbank-backend/pkg/config"
	"github.com/padbank/padbank-backend/pkg/database"
	"github.com/padbank/padbank-backend/pkg/logger"
)

const usage = `usage: migrate <command> [arg]

commands:
  up            apply all pending migrations
  down          roll back every migration
  steps N       apply N migrations (negative N rolls back)
  version       print the current schema version
  force V       set the version without running migrations
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadWithValidation("migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate", cfg.Server.Environment)

	migrator, err := database.NewMigrator(migrations.FS, cfg.Database.MigrationURL(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open migrator")
	}
	defer migrator.Close()

	if err := run(migrator, os.Args[1:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("migration command failed")
		migrator.Close()
		os.Exit(1)
	}
}

func run(m *database.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a numeric argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument %q: %w", args[0], args[1], err)
	}
	return n, nil
}
