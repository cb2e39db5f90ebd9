package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"medication-schedule/internal/adapters/dispenser/httpdevice"
	memdisp "medication-schedule/internal/adapters/dispenser/memory"
	mem "medication-schedule/internal/adapters/storage/memory"
	pg "medication-schedule/internal/adapters/storage/postgres"
	"medication-schedule/internal/adapters/storage/sqlite"
	"medication-schedule/internal/config"
	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/domain/occurrences"
	"medication-schedule/internal/notify"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/ports/dispense"
)

type app struct {
	loc *time.Location
	db  *sql.DB

	doses         *doses.Service
	occurrences   *occurrences.Service
	notifications *notify.Engine
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func wire(ctx context.Context, cfg config.Config, log logger.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{loc: loc}

	var (
		doseRepo doses.Repository
		occRepo  occurrences.Repository
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "postgres":
		db, err := pg.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		doseRepo, occRepo = pg.NewDosesRepo(db), pg.NewOccurrencesRepo(db)
	case "sqlite":
		db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Storage.Path, BusyTimeout: cfg.Storage.BusyTimeout.Std()})
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		a.db = db
		doseRepo, occRepo = sqlite.NewDosesRepo(db), sqlite.NewOccurrencesRepo(db)
	default:
		doseRepo, occRepo = mem.NewDoseRepo(), mem.NewOccurrenceRepo()
	}

	a.notifications = notify.New(notify.Config{
		QueueSize:       cfg.Notifier.QueueSize,
		RatePerSec:      cfg.Notifier.RatePerSec,
		DefaultCooldown: cfg.Notifier.DefaultCooldown.Std(),
		MaxPerUser:      cfg.Notifier.MaxPerUser,
	}, log)

	var sink dispense.Sink
	switch strings.ToLower(strings.TrimSpace(cfg.Dispenser.Driver)) {
	case "none":
	case "http":
		c, err := httpdevice.NewClient(httpdevice.Config{
			BaseURL: cfg.Dispenser.BaseURL,
			APIKey:  cfg.Dispenser.APIKey,
			Timeout: cfg.Dispenser.Timeout.Std(),
			Devices: cfg.Dispenser.Devices,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("dispenser: %w", err)
		}
		sink = c
	default:
		sink = memdisp.New(memdisp.Config{
			Devices:      cfg.Dispenser.Devices,
			PillCapacity: cfg.Dispenser.PillCapacity,
			LowThreshold: cfg.Dispenser.LowPillThreshold,
		}, a.notifications, log)
	}

	a.doses = doses.NewService(doseRepo)
	a.occurrences = occurrences.NewService(occRepo, a.doses, occurrences.Options{
		Dispenser: sink,
		Notifier:  a.notifications,
		Logger:    log,
		Location:  loc,
	})
	return a, nil
}
