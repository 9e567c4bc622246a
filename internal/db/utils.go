package db

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/content-qa/models"
	dbpkg "github.com/dtnitsch/content-qa/pkg/db"
)

// loadSettings reads the settings block of --config. A missing file yields
// the defaults.
func loadSettings(c *cli.Context) (models.Settings, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil && !errors.Is(err, models.ErrConfigNotFound) {
		return models.Settings{}, err
	}
	return cfg.Settings, nil
}

// openCache opens the document cache named by cache_path.
func openCache(c *cli.Context) (*dbpkg.DB, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(settings.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
