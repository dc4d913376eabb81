package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/simrig-store/internal/config"
	"github.com/noah-isme/simrig-store/internal/db"
	"github.com/noah-isme/simrig-store/internal/obs"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 1, "number of migrations to roll back when direction is down")
	flag.Parse()

	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "migrate").Logger()

	if err := run(cfg.DatabaseURL, *direction, *steps, logger); err != nil {
		logger.Error().Err(err).Str("direction", *direction).Msg("migration failed")
		os.Exit(1)
	}
}

func run(databaseURL, direction string, steps int, logger zerolog.Logger) error {
	m, err := db.New(databaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrator")
		}
	}()

	switch direction {
	case "up":
		err = db.Up(m)
	case "down":
		err = db.Down(m, steps)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Info().Str("direction", direction).Msg("migrations applied, schema empty")
		return nil
	}
	logger.Info().Str("direction", direction).Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}
