package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/ports/dispense"
	"medication-schedule/internal/ports/notify"
)

var ErrDeviceRequired = errors.New("device ref is required")

const (
	stockCooldown  = 6 * time.Hour
	loadedCooldown = 30 * time.Minute
)

type Config struct {
	// Devices asigna usuario asistido -> dispositivo.
	Devices map[string]string
	// PillCapacity por compartimento (un compartimento por día).
	PillCapacity int
	// LowThreshold: total restante a partir del cual se avisa LOW.
	LowThreshold int
}

// Compartment es la carga de un día de calendario.
type Compartment struct {
	Date  calendar.Date
	Pills int
}

type device struct {
	compartments map[calendar.Date]int
	lastLoadedAt time.Time
}

// Dispenser simula el dispensador físico en memoria.
type Dispenser struct {
	mu      sync.Mutex
	cfg     Config
	users   map[string]string // user -> device
	owners  map[string]string // device -> user
	devices map[string]*device

	notifier notify.Sink
	log      logger.Logger
	now      func() time.Time
}

var _ dispense.Sink = (*Dispenser)(nil)

func New(cfg Config, notifier notify.Sink, log logger.Logger) *Dispenser {
	if cfg.PillCapacity <= 0 {
		cfg.PillCapacity = 7
	}
	if cfg.LowThreshold < 0 {
		cfg.LowThreshold = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispenser{
		cfg:      cfg,
		users:    map[string]string{},
		owners:   map[string]string{},
		devices:  map[string]*device{},
		notifier: notifier,
		log:      log.With(map[string]any{"component": "dispenser"}),
		now:      time.Now,
	}
	for userID, ref := range cfg.Devices {
		d.Assign(userID, ref)
	}
	return d
}

// Assign vincula (o re-vincula) un dispositivo a un usuario.
func (d *Dispenser) Assign(userID, ref string) {
	userID, ref = strings.TrimSpace(userID), strings.TrimSpace(ref)
	if userID == "" || ref == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.users[userID]; ok {
		delete(d.owners, prev)
	}
	d.users[userID] = ref
	d.owners[ref] = userID
}

func (d *Dispenser) ResolveDevice(ctx context.Context, userID string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.users[strings.TrimSpace(userID)]
	return ref, ok, nil
}

// ApplyDayLoad fija la carga (no suma). Días ausentes quedan en 0.
func (d *Dispenser) ApplyDayLoad(ctx context.Context, ref string, load map[calendar.Date]int) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrDeviceRequired
	}

	d.mu.Lock()
	dev := d.deviceLocked(ref)
	before := total(dev)

	next := make(map[calendar.Date]int, len(load))
	for day, n := range load {
		if n < 0 {
			n = 0
		}
		if n > d.cfg.PillCapacity {
			n = d.cfg.PillCapacity
		}
		if n > 0 {
			next[day] = n
		}
	}
	dev.compartments = next
	dev.lastLoadedAt = d.now()
	after := total(dev)
	owner := d.owners[ref]
	d.mu.Unlock()

	if before <= 0 && after > 0 {
		d.emit(ctx, notify.Notification{
			Rule:     notify.RuleDispenserLoaded,
			UserID:   owner,
			Key:      "DISPENSER_LOADED:robot=" + ref,
			Severity: notify.SeveritySuccess,
			Title:    "Dispenser loaded",
			Message:  fmt.Sprintf("The dispenser was loaded. Total pills available: %d.", after),
			Cooldown: loadedCooldown,
		})
	}
	d.emitStock(ctx, ref, owner, after)
	return nil
}

// DispenseForDay descuenta una unidad; un compartimento vacío solo avisa.
func (d *Dispenser) DispenseForDay(ctx context.Context, ref string, day calendar.Date) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrDeviceRequired
	}

	d.mu.Lock()
	dev := d.deviceLocked(ref)
	owner := d.owners[ref]
	cur := dev.compartments[day]
	if cur <= 0 {
		d.mu.Unlock()
		d.emit(ctx, notify.Notification{
			Rule:     notify.RuleDispenserEmpty,
			UserID:   owner,
			Key:      fmt.Sprintf("DISPENSER_EMPTY:robot=%s:day=%s", ref, day),
			Severity: notify.SeverityCritical,
			Title:    "Dispenser empty",
			Message:  fmt.Sprintf("No pills available for %s. Refill required.", day),
			Cooldown: stockCooldown,
		})
		return nil
	}
	if cur == 1 {
		delete(dev.compartments, day)
	} else {
		dev.compartments[day] = cur - 1
	}
	after := total(dev)
	d.mu.Unlock()

	d.log.Debug("pill dispensed", map[string]any{"device": ref, "day": day.String(), "remaining": after})
	d.emitStock(ctx, ref, owner, after)
	return nil
}

// Compartments devuelve la carga por día, ordenada por fecha.
func (d *Dispenser) Compartments(ref string) []Compartment {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[ref]
	if !ok {
		return nil
	}
	out := make([]Compartment, 0, len(dev.compartments))
	for day, n := range dev.compartments {
		out = append(out, Compartment{Date: day, Pills: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (d *Dispenser) deviceLocked(ref string) *device {
	dev, ok := d.devices[ref]
	if !ok {
		dev = &device{compartments: map[calendar.Date]int{}}
		d.devices[ref] = dev
	}
	return dev
}

func total(dev *device) int {
	n := 0
	for _, c := range dev.compartments {
		n += c
	}
	return n
}

func (d *Dispenser) emitStock(ctx context.Context, ref, owner string, remaining int) {
	switch {
	case remaining <= 0:
		d.emit(ctx, notify.Notification{
			Rule:     notify.RuleDispenserEmpty,
			UserID:   owner,
			Key:      "DISPENSER_EMPTY:robot=" + ref,
			Severity: notify.SeverityCritical,
			Title:    "Dispenser empty",
			Message:  "No pills are available in the dispenser. Refill required.",
			Cooldown: stockCooldown,
		})
	case remaining <= d.cfg.LowThreshold:
		d.emit(ctx, notify.Notification{
			Rule:     notify.RuleDispenserLow,
			UserID:   owner,
			Key:      "DISPENSER_LOW:robot=" + ref,
			Severity: notify.SeverityWarn,
			Title:    "Dispenser running low",
			Message:  fmt.Sprintf("Only %d pill(s) remaining. Plan a refill soon.", remaining),
			Cooldown: stockCooldown,
		})
	}
}

// emit: sin dueño conocido no hay a quién avisar.
func (d *Dispenser) emit(ctx context.Context, n notify.Notification) {
	if d.notifier == nil || n.UserID == "" {
		return
	}
	if err := d.notifier.Emit(ctx, n); err != nil {
		d.log.Warn("dispenser notification failed", map[string]any{"rule": string(n.Rule), "error": err})
	}
}
