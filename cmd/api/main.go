package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"medication-schedule/internal/config"
	"medication-schedule/internal/jobs"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/router"

	"golang.org/x/sync/errgroup"
)

// @title Medication Schedule API
// @version 1.0
// @description Programación de dosis, ciclo de vida de tomas, dispensador y notificaciones.
// @BasePath /
func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "path to config yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: logger.ParseFormat(cfg.Logging.Format),
		App:    cfg.Logging.App,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, cfgPath, log); err != nil {
		log.Error("fatal", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cfgPath string, log *logger.ZeroLogger) error {
	app, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	app.notifications.Start(ctx)

	var sched *jobs.Scheduler
	if cfg.Jobs.Enabled {
		sched, err = jobs.New(jobs.Config{
			RefreshSpec:      cfg.Jobs.RefreshSpec,
			RemindersSpec:    cfg.Jobs.RemindersSpec,
			GenerateSpec:     cfg.Jobs.GenerateSpec,
			GenerateLookback: cfg.Jobs.GenerateLookback,
			GenerateAhead:    cfg.Jobs.GenerateAhead,
			Location:         app.loc,
		}, app.occurrences, log)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		// Al arrancar se ponen al día los estados.
		if err := sched.RunNow(ctx, jobs.JobRefresh); err != nil {
			log.Warn("initial refresh failed", map[string]any{"error": err})
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: router.NewRouter(router.Options{
			Logger:        log,
			Doses:         app.doses,
			Occurrences:   app.occurrences,
			Notifications: app.notifications,
			Location:      app.loc,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{
			"addr":      cfg.HTTP.Addr,
			"store":     cfg.Storage.Driver,
			"dispenser": cfg.Dispenser.Driver,
			"tz":        app.loc.String(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if strings.TrimSpace(cfgPath) != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfgPath, func(next config.Config) {
				// Solo el nivel de log se aplica en caliente; el resto requiere reinicio.
				log.SetLevel(logger.ParseLevel(next.Logging.Level))
				log.Info("config reloaded", map[string]any{"level": next.Logging.Level})
			}, func(err error) {
				log.Warn("config reload failed", map[string]any{"error": err})
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", map[string]any{"error": err})
		}
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				log.Warn("jobs shutdown", map[string]any{"error": err})
			}
		}
		app.notifications.Stop(shutdownCtx)
		log.Info("server stopped", nil)
		return nil
	})

	return g.Wait()
}
