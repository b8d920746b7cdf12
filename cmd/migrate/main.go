package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/noah-isme/engir-api/pkg/config"
	"github.com/noah-isme/engir-api/pkg/database"
	"github.com/noah-isme/engir-api/pkg/logger"
)

const usage = `usage: migrate [-steps N] <up|down|version|force VERSION>`

func main() {
	var steps int
	flag.IntVar(&steps, "steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	m, err := database.NewMigrator(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to init migrator", "error", err)
	}
	defer m.Close() //nolint:errcheck

	switch flag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down(steps)
	case "force":
		var version int
		version, err = strconv.Atoi(flag.Arg(1))
		if err != nil {
			sugar.Fatalw("force needs a numeric version", "arg", flag.Arg(1))
		}
		err = m.Force(version)
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		sugar.Fatalw("migration failed", "command", flag.Arg(0), "error", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		sugar.Fatalw("failed to read schema version", "error", err)
	}
	sugar.Infow("schema version", "version", version, "dirty", dirty)
}
