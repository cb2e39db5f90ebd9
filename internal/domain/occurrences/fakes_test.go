package occurrences

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/ports/notify"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = fmt.Errorf("repo: %w", ErrNotFound)

type testRepo struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	byID    map[string]Occurrence
	inserts int

	// fallas inyectadas
	getErr     error
	advanceErr error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Occurrence{}}
}

func (r *testRepo) put(o Occurrence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[o.ID] = o
}

func (r *testRepo) all() []Occurrence {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Occurrence, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	sortOcc(out)
	return out
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return Occurrence{}, r.getErr
	}
	o, ok := r.byID[id]
	if !ok {
		return Occurrence{}, errRepoNotFound
	}
	return o, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string, w Window) ([]Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(func(o Occurrence) bool { return o.UserID == userID && w.Contains(o.ScheduledAt) }), nil
}

func (r *testRepo) ListByStatus(ctx context.Context, status Status, w Window) ([]Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(func(o Occurrence) bool {
		return o.Status == status && o.TakenAt == nil && w.Contains(o.ScheduledAt)
	}), nil
}

func (r *testRepo) listLocked(keep func(Occurrence) bool) []Occurrence {
	out := make([]Occurrence, 0)
	for _, o := range r.byID {
		if keep(o) {
			out = append(out, o)
		}
	}
	sortOcc(out)
	return out
}

func (r *testRepo) AdvanceStatuses(ctx context.Context, now, cutoff time.Time) (AdvanceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advanceErr != nil {
		return AdvanceResult{}, r.advanceErr
	}
	var res AdvanceResult
	for id, o := range r.byID {
		if o.Status == StatusScheduled && !o.ScheduledAt.After(now) {
			o.Status = StatusDue
			r.byID[id] = o
			res.Due++
		}
	}
	for id, o := range r.byID {
		if o.Status == StatusDue && o.TakenAt == nil && !o.ScheduledAt.After(cutoff) {
			o.Status = StatusMissed
			r.byID[id] = o
			res.Missed++
		}
	}
	return res, nil
}

func (r *testRepo) Transition(ctx context.Context, id string, from []Status, c Change) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if o.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	apply(&o, c)
	r.byID[id] = o
	return true, nil
}

func (r *testRepo) WithinUserTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	tx := &testTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range tx.pending {
		r.byID[o.ID] = o
		r.inserts++
	}
	return nil
}

type testTx struct {
	repo    *testRepo
	pending []Occurrence
}

func (t *testTx) ListByUser(ctx context.Context, userID string, w Window) ([]Occurrence, error) {
	return t.repo.ListByUser(ctx, userID, w)
}

func (t *testTx) ExistingTimes(ctx context.Context, doseID string, w Window) ([]time.Time, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	var out []time.Time
	for _, o := range t.repo.byID {
		if o.DoseID == doseID && w.Contains(o.ScheduledAt) {
			out = append(out, o.ScheduledAt)
		}
	}
	return out, nil
}

func (t *testTx) InsertBatch(ctx context.Context, items []Occurrence) (int, error) {
	t.pending = append(t.pending, items...)
	return len(items), nil
}

func sortOcc(out []Occurrence) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].DoseID < out[j].DoseID
	})
}

// -------------------------
// Doses / sinks
// -------------------------

type testDoses struct {
	items []doses.Dose
}

func (d *testDoses) ListByUser(ctx context.Context, userID string) ([]doses.Dose, error) {
	out := make([]doses.Dose, 0)
	for _, x := range d.items {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (d *testDoses) ListUserIDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, x := range d.items {
		if _, ok := seen[x.UserID]; ok {
			continue
		}
		seen[x.UserID] = struct{}{}
		out = append(out, x.UserID)
	}
	return out, nil
}

type testDispenser struct {
	mu        sync.Mutex
	devices   map[string]string
	dispensed []calendar.Date
	loads     []map[calendar.Date]int
	failWith  error
}

func (d *testDispenser) ResolveDevice(ctx context.Context, userID string) (string, bool, error) {
	ref, ok := d.devices[userID]
	return ref, ok, nil
}

func (d *testDispenser) DispenseForDay(ctx context.Context, ref string, day calendar.Date) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.dispensed = append(d.dispensed, day)
	return nil
}

func (d *testDispenser) ApplyDayLoad(ctx context.Context, ref string, load map[calendar.Date]int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loads = append(d.loads, load)
	return nil
}

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

func (n *testNotifier) byRule(rule notify.Rule) []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Notification
	for _, x := range n.sent {
		if x.Rule == rule {
			out = append(out, x)
		}
	}
	return out
}

// -------------------------
// Helpers
// -------------------------

func tod(s string) calendar.TimeOfDay {
	t, err := calendar.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func date(s string) *calendar.Date {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc       *Service
	repo      *testRepo
	doses     *testDoses
	dispenser *testDispenser
	notifier  *testNotifier
}

func newFixture(now time.Time, ds ...doses.Dose) *fixture {
	f := &fixture{
		repo:      newTestRepo(),
		doses:     &testDoses{items: ds},
		dispenser: &testDispenser{devices: map[string]string{"user-1": "robot-1"}},
		notifier:  &testNotifier{},
	}
	f.svc = NewService(f.repo, f.doses, Options{
		Dispenser: f.dispenser,
		Notifier:  f.notifier,
		Location:  time.UTC,
	})
	f.svc.now = func() time.Time { return now }
	return f
}
