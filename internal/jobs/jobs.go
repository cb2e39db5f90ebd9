// Package jobs agenda las tareas periódicas del motor de ocurrencias:
// avance de estados, recordatorios y generación nocturna.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"medication-schedule/internal/domain/occurrences"
	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/platform/logger"

	"github.com/robfig/cron/v3"
)

const (
	JobRefresh   = "refresh"
	JobReminders = "reminders"
	JobGenerate  = "generate"

	defaultTimeout = 5 * time.Minute
)

var ErrNotStarted = errors.New("scheduler not started")

// Engine es lo que los jobs necesitan del servicio de ocurrencias.
type Engine interface {
	RefreshDueAndMissed(ctx context.Context, now time.Time) (occurrences.AdvanceResult, error)
	EmitReminders(ctx context.Context, now time.Time) (occurrences.ReminderStats, error)
	GenerateForAllUsers(ctx context.Context, from, to time.Time) (int, error)
}

type Config struct {
	// Specs vacíos deshabilitan el job correspondiente.
	RefreshSpec   string
	RemindersSpec string
	GenerateSpec  string

	// Ventana de la generación nocturna, en días respecto de hoy.
	GenerateLookback int
	GenerateAhead    int

	Location *time.Location
	Timeout  time.Duration
}

type Scheduler struct {
	mu sync.Mutex

	cfg    Config
	engine Engine
	log    logger.Logger
	parser cron.Parser
	now    func() time.Time

	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func New(cfg Config, engine Engine, log logger.Logger) (*Scheduler, error) {
	if engine == nil {
		return nil, errors.New("jobs: engine is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.GenerateLookback < 0 || cfg.GenerateAhead < 0 {
		return nil, errors.New("jobs: generate window must not be negative")
	}

	s := &Scheduler{
		cfg:    cfg,
		engine: engine,
		log:    log.With(map[string]any{"component": "jobs"}),
		// SecondOptional acepta specs de 5 y 6 campos.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:    time.Now,
	}
	for name, spec := range s.specs() {
		if _, err := s.parser.Parse(spec); err != nil {
			return nil, fmt.Errorf("jobs: invalid %s spec %q: %w", name, spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) specs() map[string]string {
	out := map[string]string{}
	for name, spec := range map[string]string{
		JobRefresh:   s.cfg.RefreshSpec,
		JobReminders: s.cfg.RemindersSpec,
		JobGenerate:  s.cfg.GenerateSpec,
	} {
		if spec = strings.TrimSpace(spec); spec != "" {
			out[name] = spec
		}
	}
	return out
}

// Start registra los jobs y arranca el cron. Llamarlo dos veces no hace nada.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	for name, spec := range s.specs() {
		name := name
		if _, err := c.AddFunc(spec, func() { s.run(runCtx, name) }); err != nil {
			cancel()
			return fmt.Errorf("jobs: add %s: %w", name, err)
		}
	}

	s.c, s.runCtx, s.cancel = c, runCtx, cancel
	c.Start()
	s.log.Info("scheduler started", map[string]any{"tz": s.cfg.Location.String(), "jobs": len(c.Entries())})
	return nil
}

// Stop deja de agendar y espera a que terminen los jobs en curso o a ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel, s.runCtx = nil, nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop().Done()
	select {
	case <-done:
		cancel()
		s.log.Info("scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// RunNow ejecuta un job fuera de agenda (p.ej. al arrancar).
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	switch name {
	case JobRefresh, JobReminders, JobGenerate:
	default:
		return fmt.Errorf("jobs: unknown job %q", name)
	}
	return s.exec(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) {
	if err := s.exec(ctx, name); err != nil {
		s.log.Error("job failed", map[string]any{"job": name, "error": err})
	}
}

func (s *Scheduler) exec(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := s.now()
	fields := map[string]any{"job": name}

	switch name {
	case JobRefresh:
		res, err := s.engine.RefreshDueAndMissed(ctx, started)
		if err != nil {
			return err
		}
		fields["due"], fields["missed"] = res.Due, res.Missed
	case JobReminders:
		st, err := s.engine.EmitReminders(ctx, started)
		if err != nil {
			return err
		}
		fields["due"], fields["confirm_required"], fields["missed"] = st.Due, st.ConfirmRequired, st.Missed
	case JobGenerate:
		from, to := s.generateWindow(started)
		n, err := s.engine.GenerateForAllUsers(ctx, from, to)
		if err != nil {
			return err
		}
		fields["users"], fields["from"], fields["to"] = n, from.Format(time.RFC3339), to.Format(time.RFC3339)
	}

	fields["took_ms"] = s.now().Sub(started).Milliseconds()
	s.log.Debug("job done", fields)
	return nil
}

// generateWindow cubre desde el inicio de hoy-lookback hasta el fin de hoy+ahead.
func (s *Scheduler) generateWindow(now time.Time) (time.Time, time.Time) {
	today := calendar.DateOf(now.In(s.cfg.Location))
	from := today.AddDays(-s.cfg.GenerateLookback).Start(s.cfg.Location)
	to := today.AddDays(s.cfg.GenerateAhead).End(s.cfg.Location)
	return from, to
}

// cronLogger adapta logger.Logger a cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kv(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	f := kv(keysAndValues)
	f["error"] = err
	l.log.Error("cron: "+msg, f)
}

func kv(in []any) map[string]any {
	out := make(map[string]any, len(in)/2+1)
	for i := 0; i+1 < len(in); i += 2 {
		k, ok := in[i].(string)
		if !ok {
			k = fmt.Sprint(in[i])
		}
		out[k] = in[i+1]
	}
	return out
}
