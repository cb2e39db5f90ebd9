package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	port "medication-schedule/internal/ports/notify"
)

func newTestEngine(cfg Config, now *time.Time) *Engine {
	e := New(cfg, nil)
	e.now = func() time.Time { return *now }
	e.Start(context.Background())
	return e
}

func drain(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.Stop(ctx)
}

func TestEngine_CooldownPerUserAndKey(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(Config{RatePerSec: 1000}, &now)
	ctx := context.Background()

	n := port.Notification{Rule: port.RuleDoseDue, UserID: "u1", Key: "DOSE_DUE:occ=1:user=u1", Title: "due", Cooldown: 30 * time.Minute}
	for i := 0; i < 3; i++ {
		if err := e.Emit(ctx, n); err != nil {
			t.Fatalf("Emit error: %v", err)
		}
	}

	// Otro usuario con la misma key no se deduplica.
	other := n
	other.UserID = "u2"
	if err := e.Emit(ctx, other); err != nil {
		t.Fatalf("Emit error: %v", err)
	}

	// Pasado el cooldown vuelve a emitirse.
	now = now.Add(31 * time.Minute)
	if err := e.Emit(ctx, n); err != nil {
		t.Fatalf("Emit error: %v", err)
	}

	drain(t, e)

	if got := len(e.ListByUser("u1", 0)); got != 2 {
		t.Fatalf("expected 2 notifications for u1, got %d", got)
	}
	if got := len(e.ListByUser("u2", 0)); got != 1 {
		t.Fatalf("expected 1 notification for u2, got %d", got)
	}
}

func TestEngine_DefaultCooldown(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(Config{RatePerSec: 1000, DefaultCooldown: 10 * time.Minute}, &now)
	ctx := context.Background()

	n := port.Notification{Rule: port.RuleDispenserLow, UserID: "u1", Key: "low"}
	_ = e.Emit(ctx, n)
	now = now.Add(9 * time.Minute)
	_ = e.Emit(ctx, n)
	now = now.Add(2 * time.Minute)
	_ = e.Emit(ctx, n)
	drain(t, e)

	if got := len(e.ListByUser("u1", 0)); got != 2 {
		t.Fatalf("expected 2 notifications, got %d", got)
	}
}

func TestEngine_DroppedNotificationDoesNotStartCooldown(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := New(Config{QueueSize: 1}, nil)
	e.now = func() time.Time { return now }
	// Cola sin worker para llenarla a mano.
	e.queue = make(chan Record, 1)
	e.accepting = true
	ctx := context.Background()

	first := port.Notification{Rule: port.RuleDoseDue, UserID: "u1", Key: "a", Cooldown: time.Hour}
	second := port.Notification{Rule: port.RuleDoseDue, UserID: "u1", Key: "b", Cooldown: time.Hour}

	if err := e.Emit(ctx, first); err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	if err := e.Emit(ctx, second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	<-e.queue
	if err := e.Emit(ctx, second); err != nil {
		t.Fatalf("retry after drop must be accepted, got %v", err)
	}
	if rec := <-e.queue; rec.Key != "b" {
		t.Fatalf("expected retried notification in queue, got %+v", rec)
	}
}

func TestEngine_KeepsLatestPerUser(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(Config{RatePerSec: 1000, MaxPerUser: 5, QueueSize: 64}, &now)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		now = now.Add(time.Second)
		if err := e.Emit(ctx, port.Notification{Rule: port.RuleDoseTaken, UserID: "u1", Key: fmt.Sprintf("k%d", i)}); err != nil {
			t.Fatalf("Emit error: %v", err)
		}
	}
	drain(t, e)

	items := e.ListByUser("u1", 0)
	if len(items) != 5 {
		t.Fatalf("expected 5 kept, got %d", len(items))
	}
	if items[0].Key != "k7" || items[4].Key != "k3" {
		t.Fatalf("expected newest first k7..k3, got %s..%s", items[0].Key, items[4].Key)
	}
	if got := e.ListByUser("u1", 2); len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestEngine_EmitValidationAndStopped(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(Config{}, &now)

	if err := e.Emit(context.Background(), port.Notification{Rule: port.RuleDoseDue}); !errors.Is(err, ErrInvalidNotification) {
		t.Fatalf("expected ErrInvalidNotification, got %v", err)
	}

	drain(t, e)
	if err := e.Emit(context.Background(), port.Notification{Rule: port.RuleDoseDue, UserID: "u1"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}
