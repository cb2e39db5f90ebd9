// Package notify implementa el motor de notificaciones in-app.
//
// Emit es no bloqueante: aplica el cooldown por (usuario, key) en el momento,
// encola y un worker registra la notificación respetando un rate limit.
// Cada usuario conserva como máximo MaxPerUser notificaciones; las más viejas
// se descartan.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medication-schedule/internal/platform/logger"
	port "medication-schedule/internal/ports/notify"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidNotification = errors.New("invalid notification")
	ErrQueueFull           = errors.New("notification queue full")
	ErrStopped             = errors.New("notification engine stopped")
)

const (
	maxKeyLen     = 200
	maxTitleLen   = 180
	maxMessageLen = 2000
)

type Config struct {
	QueueSize       int
	RatePerSec      int
	DefaultCooldown time.Duration
	MaxPerUser      int
}

// Record es una notificación ya entregada al inbox del usuario.
type Record struct {
	ID        string
	Rule      port.Rule
	UserID    string
	Key       string
	Severity  port.Severity
	Title     string
	Message   string
	CreatedAt time.Time
}

type Engine struct {
	log     logger.Logger
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time

	mu        sync.Mutex
	accepting bool
	queue     chan Record
	done      chan struct{}
	sendWG    sync.WaitGroup

	// (user|key) -> suprimir hasta
	dmu   sync.Mutex
	dedup map[string]time.Time

	imu   sync.RWMutex
	inbox map[string][]Record
}

var _ port.Sink = (*Engine)(nil)

func New(cfg Config, log logger.Logger) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = 10 * time.Minute
	}
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 500
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		log:     log.With(map[string]any{"component": "notify"}),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		now:     time.Now,
		dedup:   map[string]time.Time{},
		inbox:   map[string][]Record{},
	}
}

// Start levanta el worker. Es idempotente.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue != nil {
		return
	}
	e.queue = make(chan Record, e.cfg.QueueSize)
	e.done = make(chan struct{})
	e.accepting = true

	go e.worker(ctx, e.queue, e.done)
}

// Stop deja de aceptar y drena la cola hasta que ctx venza.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	q, done := e.queue, e.done
	if q == nil {
		e.mu.Unlock()
		return
	}
	e.accepting = false
	e.queue = nil
	e.mu.Unlock()

	e.sendWG.Wait()
	close(q)

	select {
	case <-done:
	case <-ctx.Done():
		e.log.Warn("notification queue not drained", map[string]any{"pending": len(q)})
	}
}

// Emit aplica cooldown y encola. Un duplicado dentro del cooldown no es error.
func (e *Engine) Emit(ctx context.Context, n port.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	userID := strings.TrimSpace(n.UserID)
	if userID == "" || n.Rule == "" {
		return fmt.Errorf("%w: user and rule are required", ErrInvalidNotification)
	}

	e.mu.Lock()
	if !e.accepting || e.queue == nil {
		e.mu.Unlock()
		return ErrStopped
	}
	q := e.queue
	e.sendWG.Add(1)
	e.mu.Unlock()
	defer e.sendWG.Done()

	now := e.now()
	key := truncate(n.Key, maxKeyLen)
	dedupKey := ""
	var until time.Time
	if key != "" {
		cd := n.Cooldown
		if cd <= 0 {
			cd = e.cfg.DefaultCooldown
		}
		dedupKey, until = userID+"|"+key, now.Add(cd)
		if !e.allow(dedupKey, now, until) {
			return nil
		}
	}

	title := truncate(n.Title, maxTitleLen)
	if title == "" {
		title = "Notification"
	}
	rec := Record{
		ID:        uuid.NewString(),
		Rule:      n.Rule,
		UserID:    userID,
		Key:       key,
		Severity:  n.Severity,
		Title:     title,
		Message:   truncate(n.Message, maxMessageLen),
		CreatedAt: now,
	}

	select {
	case q <- rec:
		return nil
	default:
		// Descartada: no debe suprimir el reintento.
		e.forget(dedupKey, until)
		e.log.Warn("notification dropped", map[string]any{"rule": string(n.Rule), "user_id": userID})
		return ErrQueueFull
	}
}

// ListByUser devuelve el inbox del usuario, más nuevas primero.
func (e *Engine) ListByUser(userID string, limit int) []Record {
	e.imu.RLock()
	items := e.inbox[userID]
	out := make([]Record, len(items))
	copy(out, items)
	e.imu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) allow(key string, now, until time.Time) bool {
	e.dmu.Lock()
	defer e.dmu.Unlock()

	if prev, ok := e.dedup[key]; ok && now.Before(prev) {
		return false
	}
	e.dedup[key] = until

	for k, until := range e.dedup {
		if !now.Before(until) {
			delete(e.dedup, k)
		}
	}
	return true
}

// forget libera el cooldown solo si sigue siendo el que registró esta llamada.
func (e *Engine) forget(key string, until time.Time) {
	if key == "" {
		return
	}
	e.dmu.Lock()
	defer e.dmu.Unlock()
	if cur, ok := e.dedup[key]; ok && cur.Equal(until) {
		delete(e.dedup, key)
	}
}

func (e *Engine) worker(ctx context.Context, q <-chan Record, done chan<- struct{}) {
	defer close(done)
	for rec := range q {
		// Con ctx cancelado Wait vuelve enseguida y se drena sin limitar.
		_ = e.limiter.Wait(ctx)
		e.deliver(rec)
	}
}

func (e *Engine) deliver(rec Record) {
	e.imu.Lock()
	items := append(e.inbox[rec.UserID], rec)
	if over := len(items) - e.cfg.MaxPerUser; over > 0 {
		items = append([]Record(nil), items[over:]...)
	}
	e.inbox[rec.UserID] = items
	e.imu.Unlock()

	e.log.Info("notification emitted", map[string]any{
		"rule":     string(rec.Rule),
		"user_id":  rec.UserID,
		"severity": string(rec.Severity),
		"key":      rec.Key,
	})
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
