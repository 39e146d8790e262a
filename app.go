package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/config"
	"adbdeck/logging"
	"adbdeck/parser"
	"adbdeck/registry"
	"adbdeck/service"
)

// app wires the services one command needs from the loaded config.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *registry.Registry
	client   *adb.ADBClient
	db       *sql.DB
}

func newApp(c *config.Config) *app {
	log := logging.Logger
	bundle := c.ToolDir
	if bundle == "" {
		bundle = adb.DefaultBundleDir()
	}
	runner := adb.NewRunner(log, c.CommandTimeout)
	return &app{
		cfg:      c,
		log:      log,
		registry: registry.New(c.Devices),
		client:   adb.NewADBClient(runner, bundle, log),
	}
}

// openDB opens the history database on first use.
func (a *app) openDB() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := config.InitDatabase(a.cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) dispatcher() *service.ActionDispatcher {
	return service.NewActionDispatcher(a.client, a.registry, service.OptionsFromConfig(a.cfg), a.log)
}

func (a *app) locale() parser.Locale {
	return parser.Locale(a.cfg.Locale)
}

// resolveDevice returns id, or the first connected device when id is empty.
func (a *app) resolveDevice(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	rows := a.client.Devices(ctx)
	if len(rows) == 0 {
		return "", service.ErrNoDevice
	}
	return rows[0].Serial, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
