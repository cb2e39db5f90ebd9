package occurrences

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medication-schedule/internal/ports/notify"
)

// RefreshDueAndMissed aplica las transiciones automáticas:
// SCHEDULED -> DUE al llegar su hora y DUE -> MISSED tras MissedAfter sin confirmar.
// Es idempotente y puede correr en paralelo con sí misma.
func (s *Service) RefreshDueAndMissed(ctx context.Context, now time.Time) (AdvanceResult, error) {
	res, err := s.repo.AdvanceStatuses(ctx, now, now.Add(-MissedAfter))
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("refresh statuses: %w", err)
	}
	if res.Due > 0 || res.Missed > 0 {
		s.log.Debug("statuses refreshed", map[string]any{"due": res.Due, "missed": res.Missed})
	}
	return res, nil
}

// MarkTaken confirma la toma. takenAt nil = ahora. Una nota en blanco no
// reemplaza la existente.
func (s *Service) MarkTaken(ctx context.Context, id string, takenAt *time.Time, note string) (Occurrence, error) {
	o, err := s.markTaken(ctx, id, takenAt, note)
	if err != nil {
		return Occurrence{}, err
	}

	s.emit(ctx, notify.Notification{
		Rule:     notify.RuleDoseTaken,
		UserID:   o.UserID,
		Key:      notificationKey(notify.RuleDoseTaken, o),
		Severity: notify.SeveritySuccess,
		Title:    "Medication marked as taken",
		Message:  fmt.Sprintf("Dose scheduled at %s was marked as taken.", o.ScheduledAt.In(s.loc).Format("2006-01-02 15:04")),
		Cooldown: 5 * time.Minute,
	})
	return o, nil
}

// SetStatus solo acepta TAKEN o MISSED. MISSED nunca pisa un TAKEN y limpia TakenAt.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, note string) (Occurrence, error) {
	switch status {
	case StatusTaken:
		return s.markTaken(ctx, id, nil, note)
	case StatusMissed:
	default:
		return Occurrence{}, fmt.Errorf("%w: only TAKEN or MISSED are allowed", ErrInvalidInput)
	}

	now := s.now()
	if _, err := s.RefreshDueAndMissed(ctx, now); err != nil {
		return Occurrence{}, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return Occurrence{}, err
	}
	if o.Status == StatusTaken {
		return Occurrence{}, fmt.Errorf("%w: already TAKEN", ErrLocked)
	}
	if o.ScheduledAt.After(now) {
		return Occurrence{}, fmt.Errorf("%w: cannot update a future occurrence", ErrLocked)
	}

	change, err := s.change(StatusMissed, nil, note, now)
	if err != nil {
		return Occurrence{}, err
	}
	ok, err := s.repo.Transition(ctx, o.ID, []Status{StatusScheduled, StatusDue, StatusMissed}, change)
	if err != nil {
		return Occurrence{}, err
	}
	if !ok {
		return Occurrence{}, fmt.Errorf("%w: status changed concurrently", ErrLocked)
	}

	apply(&o, change)
	s.log.Info("occurrence marked missed", map[string]any{"occurrence_id": o.ID, "user_id": o.UserID})
	return o, nil
}

func (s *Service) markTaken(ctx context.Context, id string, takenAt *time.Time, note string) (Occurrence, error) {
	now := s.now()
	if _, err := s.RefreshDueAndMissed(ctx, now); err != nil {
		return Occurrence{}, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return Occurrence{}, err
	}
	if err := assertUpdatable(o, now); err != nil {
		return Occurrence{}, err
	}

	at := now
	if takenAt != nil && !takenAt.IsZero() {
		at = *takenAt
	}
	change, err := s.change(StatusTaken, &at, note, now)
	if err != nil {
		return Occurrence{}, err
	}

	// El UPDATE condicional es el que decide: si otro request ganó la
	// carrera, no hay fila que actualizar y no se dispensa dos veces.
	ok, err := s.repo.Transition(ctx, o.ID, []Status{StatusScheduled, StatusDue}, change)
	if err != nil {
		return Occurrence{}, err
	}
	if !ok {
		return Occurrence{}, fmt.Errorf("%w: status changed concurrently", ErrLocked)
	}
	apply(&o, change)

	s.log.Info("occurrence marked taken", map[string]any{"occurrence_id": o.ID, "user_id": o.UserID})
	s.dispenseFor(ctx, o)
	return o, nil
}

func (s *Service) change(status Status, takenAt *time.Time, note string, now time.Time) (Change, error) {
	c := Change{Status: status, TakenAt: takenAt, UpdatedAt: now}
	if n := strings.TrimSpace(note); n != "" {
		if len(n) > MaxNoteLen {
			return Change{}, fmt.Errorf("%w: note too long", ErrInvalidInput)
		}
		c.Note = &n
	}
	return c, nil
}

func apply(o *Occurrence, c Change) {
	o.Status = c.Status
	o.TakenAt = c.TakenAt
	if c.Note != nil {
		o.Note = *c.Note
	}
	o.UpdatedAt = c.UpdatedAt
}

// assertUpdatable: solo se confirma lo que ya llegó y no tiene más de 24h.
func assertUpdatable(o Occurrence, now time.Time) error {
	switch {
	case o.ScheduledAt.After(now):
		return fmt.Errorf("%w: cannot update a future occurrence", ErrLocked)
	case o.ScheduledAt.Before(now.Add(-MissedAfter)):
		return fmt.Errorf("%w: more than 24h overdue", ErrLocked)
	case o.Status == StatusMissed:
		return fmt.Errorf("%w: already MISSED", ErrLocked)
	case o.Status == StatusTaken:
		return fmt.Errorf("%w: already TAKEN", ErrLocked)
	}
	return nil
}

// dispenseFor descuenta del compartimento del día programado. Best-effort.
func (s *Service) dispenseFor(ctx context.Context, o Occurrence) {
	if s.dispenser == nil {
		return
	}
	ref, ok, err := s.dispenser.ResolveDevice(ctx, o.UserID)
	if err != nil {
		s.log.Warn("dispenser lookup failed", map[string]any{"user_id": o.UserID, "error": err})
		return
	}
	if !ok {
		return
	}
	if err := s.dispenser.DispenseForDay(ctx, ref, s.dateOf(o.ScheduledAt)); err != nil {
		s.log.Warn("dispense failed", map[string]any{
			"occurrence_id": o.ID,
			"device":        ref,
			"error":         err,
		})
		s.emit(ctx, notify.Notification{
			Rule:     notify.RuleDispenseFailed,
			UserID:   o.UserID,
			Key:      notificationKey(notify.RuleDispenseFailed, o),
			Severity: notify.SeverityWarn,
			Title:    "Dispense failed",
			Message:  "The dispenser could not release the dose. Check the device.",
			Cooldown: 30 * time.Minute,
		})
	}
}
