package occurrences

import (
	"context"
	"fmt"
	"time"

	"medication-schedule/internal/ports/notify"
)

const (
	dueLookback     = 2 * time.Minute
	dueLookahead    = 1 * time.Minute
	confirmAfter    = 15 * time.Minute
	missedLookback  = 48 * time.Hour
	dueCooldown     = 30 * time.Minute
	confirmCooldown = 60 * time.Minute
	missedCooldown  = 7 * 24 * time.Hour
)

// ReminderStats cuenta cuántas notificaciones se pidieron por regla.
type ReminderStats struct {
	Due             int
	ConfirmRequired int
	Missed          int
}

// EmitReminders refresca estados y pide las notificaciones de recordatorio.
// La deduplicación queda a cargo del notify.Sink vía Key + Cooldown.
func (s *Service) EmitReminders(ctx context.Context, now time.Time) (ReminderStats, error) {
	var st ReminderStats
	if _, err := s.RefreshDueAndMissed(ctx, now); err != nil {
		return st, err
	}

	due, err := s.repo.ListByStatus(ctx, StatusDue, Window{From: now.Add(-dueLookback), To: now.Add(dueLookahead)})
	if err != nil {
		return st, err
	}
	for _, o := range due {
		s.emit(ctx, s.reminder(notify.RuleDoseDue, o, notify.SeverityInfo,
			"Medication due now", "is due", dueCooldown))
		st.Due++
	}

	// DUE nunca tiene más de MissedAfter después del refresh.
	overdue, err := s.repo.ListByStatus(ctx, StatusDue, Window{From: now.Add(-MissedAfter), To: now.Add(-confirmAfter)})
	if err != nil {
		return st, err
	}
	for _, o := range overdue {
		s.emit(ctx, s.reminder(notify.RuleDoseConfirmRequired, o, notify.SeverityWarn,
			"Please confirm your medication", "is still not marked as taken", confirmCooldown))
		st.ConfirmRequired++
	}

	missed, err := s.repo.ListByStatus(ctx, StatusMissed, Window{From: now.Add(-missedLookback), To: now})
	if err != nil {
		return st, err
	}
	for _, o := range missed {
		s.emit(ctx, s.reminder(notify.RuleDoseMissed, o, notify.SeverityCritical,
			"Medication missed", "was missed", missedCooldown))
		st.Missed++
	}

	return st, nil
}

func (s *Service) reminder(rule notify.Rule, o Occurrence, sev notify.Severity, title, verb string, cooldown time.Duration) notify.Notification {
	return notify.Notification{
		Rule:     rule,
		UserID:   o.UserID,
		Key:      notificationKey(rule, o),
		Severity: sev,
		Title:    title,
		Message:  fmt.Sprintf("Dose scheduled at %s %s.", o.ScheduledAt.In(s.loc).Format("2006-01-02 15:04"), verb),
		Cooldown: cooldown,
	}
}
