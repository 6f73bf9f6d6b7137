package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"recebiveis/internal/config"
	"recebiveis/internal/engine"
	"recebiveis/internal/schema"
	"recebiveis/internal/server"
	"recebiveis/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log := zerolog.New(output).With().Timestamp().Logger().Level(level)

	registry, err := schema.Load(cfg.DatasetsPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	eng := engine.New(cfg, registry, db, log)
	srv := server.New(cfg, eng, log)
	must(srv.Run())
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
