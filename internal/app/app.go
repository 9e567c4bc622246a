// Package app wires the configured collaborators into an engine for the
// CLI commands.
package app

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/caching"
	"github.com/dtnitsch/content-qa/pkg/db"
	"github.com/dtnitsch/content-qa/pkg/docsource"
	"github.com/dtnitsch/content-qa/pkg/engine"
	"github.com/dtnitsch/content-qa/pkg/fetcher"
	"github.com/dtnitsch/content-qa/pkg/language"
	"github.com/dtnitsch/content-qa/pkg/linkcheck"
	"github.com/dtnitsch/content-qa/pkg/report"
	"github.com/dtnitsch/content-qa/pkg/storage"
	"github.com/dtnitsch/content-qa/pkg/ticket"
)

// APIKeyEnv holds the BugHerd API key.
const APIKeyEnv = "BUGHERD_API_KEY"

type App struct {
	Config  *models.Config
	Engine  *engine.Engine
	Tickets *ticket.Client
	Logger  *slog.Logger

	database *db.DB
}

// New loads the config at configPath and builds every collaborator. A
// missing config file falls back to defaults. An unusable document cache
// is logged and skipped.
func New(configPath string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := models.LoadConfig(configPath)
	if errors.Is(err, models.ErrConfigNotFound) {
		logger.Warn("Config file not found, using defaults", "path", configPath)
	} else if err != nil {
		return nil, err
	}
	s := cfg.Settings

	a := &App{Config: cfg, Logger: logger}

	f := fetcher.NewFetcher(s.UserAgent, s.Timeout())
	cache := a.openCache(s)

	a.Tickets = ticket.NewClient(os.Getenv(APIKeyEnv), ticket.WithLogger(logger))
	if os.Getenv(APIKeyEnv) == "" {
		logger.Warn("BugHerd API key not set, ticketing disabled", "env", APIKeyEnv)
	}

	deps := engine.Deps{
		Pages: f,
		Docs:  docsource.New(f, cache, logger),
		Links: linkcheck.New(f, f.Client(), linkcheck.Config{
			UserAgent:      s.UserAgent,
			Timeout:        s.Timeout(),
			Workers:        s.LinkWorkers,
			IgnoredDomains: s.IgnoredDomains,
		}, logger),
		Tickets:  a.Tickets,
		Reports:  report.NewGenerator(storage.New(s.ReportsDir), logger),
		Language: language.NewLingua(),
	}
	a.Engine = engine.New(cfg, deps, logger)
	return a, nil
}

func (a *App) openCache(s models.Settings) *caching.Cache {
	ttl := s.CacheTTL()
	if ttl <= 0 {
		return nil
	}
	database, err := db.Open(s.CachePath)
	if err != nil {
		a.Logger.Warn("Document cache unavailable", "path", s.CachePath, "error", err)
		return nil
	}
	a.database = database

	pruned, err := database.DeleteDocumentsBefore(time.Now().Add(-ttl))
	if err != nil {
		a.Logger.Warn("Failed to prune document cache", "error", err)
	} else if pruned > 0 {
		a.Logger.Info("Pruned stale documents", "count", pruned, "path", database.Path())
	}
	return caching.NewCache(database, ttl)
}

// Close releases the document cache.
func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	return a.database.Close()
}
