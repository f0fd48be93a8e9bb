package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/Echohint/dev-prop-firm/internal/config"
	"github.com/Echohint/dev-prop-firm/internal/engine"
	"github.com/Echohint/dev-prop-firm/internal/logger"
	"github.com/Echohint/dev-prop-firm/internal/postgres"
	"github.com/Echohint/dev-prop-firm/internal/quote"
	"github.com/Echohint/dev-prop-firm/internal/repository"
	"github.com/Echohint/dev-prop-firm/internal/server"
	"github.com/joho/godotenv"
)

const _serviceCfgFilePath = "./configs/prop-firm.yaml"

func main() {
	cfgPath := flag.String("config", _serviceCfgFilePath, "path to service config")
	memStore := flag.Bool("mem", false, "run with the in-memory store instead of postgres")
	flag.Parse()

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.Debug)
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	if err := godotenv.Load(); err != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadServiceConfig(*cfgPath)
	if err != nil {
		zapLogger.Fatalf("%s: can't load service cfg", err)
	}

	var store repository.Store
	if *memStore {
		store = repository.NewMemoryStore()
		zapLogger.Warnf("running with in-memory store, state will not survive restarts")
	} else {
		db, err := postgres.NewDB(postgres.NewConfigFromEnv().Setup())
		if err != nil {
			zapLogger.Fatalf("%s: can't connect to postgres", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Errorf("%s: can't close db", err)
			}
		}()

		store, err = repository.NewPostgresStore(db, zapLogger)
		if err != nil {
			zapLogger.Fatalf("%s: can't init store", err)
		}
	}

	var quotes quote.Source
	if cfg.Quotes.Address != "" {
		quotes = quote.NewHTTPSource(cfg.Quotes, zapLogger.With("component", "quotes"))
	} else {
		zapLogger.Warnf("no quote service configured, trade requests must carry explicit prices")
	}

	eng := engine.NewEngine(cfg.Challenge, store, quotes, zapLogger.With("component", "engine"))
	handler := server.NewHandler(eng, store, zapLogger.With("component", "http"))

	s := server.NewHTTPServer(ctx, cfg.HTTPPort, handler.Router(), zapLogger)
	if err := s.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatalf("%s: http server stopped", err)
	}
}
