package memory

import (
	"context"
	"sync"
	"testing"

	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/ports/notify"
)

type testNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *testNotifier) Emit(ctx context.Context, x notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, x)
	return nil
}

func (n *testNotifier) rules() []notify.Rule {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Rule, 0, len(n.sent))
	for _, x := range n.sent {
		out = append(out, x.Rule)
	}
	return out
}

func day(s string) calendar.Date {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDispenser_ResolveDevice(t *testing.T) {
	d := New(Config{Devices: map[string]string{"user-1": "robot-1"}}, nil, nil)

	ref, ok, err := d.ResolveDevice(context.Background(), "user-1")
	if err != nil || !ok || ref != "robot-1" {
		t.Fatalf("unexpected resolve: %q %v %v", ref, ok, err)
	}
	if _, ok, _ := d.ResolveDevice(context.Background(), "user-2"); ok {
		t.Fatalf("expected no device for user-2")
	}

	d.Assign("user-1", "robot-9")
	if ref, _, _ := d.ResolveDevice(context.Background(), "user-1"); ref != "robot-9" {
		t.Fatalf("expected reassignment, got %q", ref)
	}
}

func TestDispenser_ApplyDayLoad_SetsAndClamps(t *testing.T) {
	n := &testNotifier{}
	d := New(Config{Devices: map[string]string{"user-1": "robot-1"}, PillCapacity: 3, LowThreshold: 20}, n, nil)
	ctx := context.Background()

	load := map[calendar.Date]int{day("2024-01-01"): 2, day("2024-01-02"): 9, day("2024-01-03"): -1}
	if err := d.ApplyDayLoad(ctx, "robot-1", load); err != nil {
		t.Fatalf("ApplyDayLoad error: %v", err)
	}

	got := d.Compartments("robot-1")
	if len(got) != 2 || got[0].Pills != 2 || got[1].Pills != 3 {
		t.Fatalf("unexpected compartments: %+v", got)
	}

	// Volver a aplicar es idempotente: fija, no suma.
	_ = d.ApplyDayLoad(ctx, "robot-1", load)
	if got := d.Compartments("robot-1"); got[0].Pills != 2 || got[1].Pills != 3 {
		t.Fatalf("expected same load after reapply, got %+v", got)
	}

	rules := n.rules()
	if len(rules) < 2 || rules[0] != notify.RuleDispenserLoaded || rules[1] != notify.RuleDispenserLow {
		t.Fatalf("expected LOADED then LOW, got %v", rules)
	}
}

func TestDispenser_DispenseForDay(t *testing.T) {
	n := &testNotifier{}
	d := New(Config{Devices: map[string]string{"user-1": "robot-1"}, PillCapacity: 7, LowThreshold: 0}, n, nil)
	ctx := context.Background()

	_ = d.ApplyDayLoad(ctx, "robot-1", map[calendar.Date]int{day("2024-01-01"): 1})

	if err := d.DispenseForDay(ctx, "robot-1", day("2024-01-01")); err != nil {
		t.Fatalf("DispenseForDay error: %v", err)
	}
	if got := d.Compartments("robot-1"); len(got) != 0 {
		t.Fatalf("expected empty compartments, got %+v", got)
	}

	// Compartimento vacío: no baja de 0, avisa EMPTY.
	if err := d.DispenseForDay(ctx, "robot-1", day("2024-01-01")); err != nil {
		t.Fatalf("DispenseForDay on empty should not fail: %v", err)
	}

	empties := 0
	for _, x := range n.sent {
		if x.Rule == notify.RuleDispenserEmpty {
			empties++
			if x.UserID != "user-1" {
				t.Fatalf("expected notification to owner, got %q", x.UserID)
			}
		}
	}
	if empties != 2 {
		t.Fatalf("expected 2 EMPTY notifications (stock + day), got %d", empties)
	}
}

func TestDispenser_RequiresDeviceRef(t *testing.T) {
	d := New(Config{}, nil, nil)
	if err := d.DispenseForDay(context.Background(), " ", day("2024-01-01")); err != ErrDeviceRequired {
		t.Fatalf("expected ErrDeviceRequired, got %v", err)
	}
}
