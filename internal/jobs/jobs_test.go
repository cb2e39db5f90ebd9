package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medication-schedule/internal/domain/occurrences"
)

type testEngine struct {
	mu        sync.Mutex
	refreshed []time.Time
	reminded  []time.Time
	windows   [][2]time.Time
	failWith  error
}

func (e *testEngine) RefreshDueAndMissed(ctx context.Context, now time.Time) (occurrences.AdvanceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshed = append(e.refreshed, now)
	return occurrences.AdvanceResult{Due: 1}, e.failWith
}

func (e *testEngine) EmitReminders(ctx context.Context, now time.Time) (occurrences.ReminderStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reminded = append(e.reminded, now)
	return occurrences.ReminderStats{}, e.failWith
}

func (e *testEngine) GenerateForAllUsers(ctx context.Context, from, to time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.windows = append(e.windows, [2]time.Time{from, to})
	return 1, e.failWith
}

func (e *testEngine) refreshCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.refreshed)
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	if _, err := New(Config{RefreshSpec: "every minute please"}, &testEngine{}, nil); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if _, err := New(Config{GenerateAhead: -1}, &testEngine{}, nil); err == nil {
		t.Fatalf("expected error for negative window")
	}
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil engine")
	}
	if _, err := New(Config{RefreshSpec: "0 */15 * * * *", RemindersSpec: "@every 1m", GenerateSpec: "10 2 * * *"}, &testEngine{}, nil); err != nil {
		t.Fatalf("expected valid specs, got %v", err)
	}
}

func TestRunNow_GenerateWindowUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Skip("tzdata not available")
	}
	e := &testEngine{}
	s, _ := New(Config{GenerateLookback: 1, GenerateAhead: 7, Location: loc}, e, nil)
	// 01:30 UTC del 10 es todavía el 9 en Buenos Aires (UTC-3).
	s.now = func() time.Time { return time.Date(2024, 5, 10, 1, 30, 0, 0, time.UTC) }

	if err := s.RunNow(context.Background(), JobGenerate); err != nil {
		t.Fatalf("RunNow error: %v", err)
	}
	if len(e.windows) != 1 {
		t.Fatalf("expected one generation, got %d", len(e.windows))
	}
	from, to := e.windows[0][0], e.windows[0][1]
	if want := time.Date(2024, 5, 8, 0, 0, 0, 0, loc); !from.Equal(want) {
		t.Fatalf("unexpected from: %v, want %v", from, want)
	}
	if want := time.Date(2024, 5, 17, 0, 0, 0, 0, loc).Add(-time.Nanosecond); !to.Equal(want) {
		t.Fatalf("unexpected to: %v, want %v", to, want)
	}
}

func TestRunNow_PropagatesErrors(t *testing.T) {
	e := &testEngine{failWith: errors.New("db down")}
	s, _ := New(Config{}, e, nil)
	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.RunNow(context.Background(), JobRefresh); err == nil {
		t.Fatalf("expected refresh error")
	}
	if !e.refreshed[0].Equal(fixed) {
		t.Fatalf("refresh must receive the scheduler clock")
	}
	if err := s.RunNow(context.Background(), "vacuum"); err == nil {
		t.Fatalf("expected error for unknown job")
	}
}

func TestScheduler_StartRunsJobsAndStops(t *testing.T) {
	e := &testEngine{}
	s, err := New(Config{RefreshSpec: "@every 1s", Location: time.UTC}, e, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	// Segundo Start es no-op.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for e.refreshCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if e.refreshCount() == 0 {
		t.Fatalf("expected at least one scheduled refresh")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop must be a no-op, got %v", err)
	}
}
