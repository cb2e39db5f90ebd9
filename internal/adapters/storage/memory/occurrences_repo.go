package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"medication-schedule/internal/domain/occurrences"
)

type occurrenceRepo struct {
	mu     sync.RWMutex
	byID   map[string]occurrences.Occurrence
	unique map[string]string // dose|scheduledAt -> id

	// Serializa WithinUserTx por usuario.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewOccurrenceRepo() occurrences.Repository {
	return &occurrenceRepo{
		byID:   make(map[string]occurrences.Occurrence),
		unique: make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

func uniqueKey(doseID string, at time.Time) string {
	return fmt.Sprintf("%s|%d", doseID, at.UnixNano())
}

func (r *occurrenceRepo) GetByID(ctx context.Context, id string) (occurrences.Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return occurrences.Occurrence{}, notFound(occurrences.ErrNotFound)
	}
	return cloneOcc(o), nil
}

func (r *occurrenceRepo) ListByUser(ctx context.Context, userID string, w occurrences.Window) ([]occurrences.Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filterLocked(func(o occurrences.Occurrence) bool {
		return o.UserID == userID && w.Contains(o.ScheduledAt)
	}), nil
}

func (r *occurrenceRepo) ListByStatus(ctx context.Context, status occurrences.Status, w occurrences.Window) ([]occurrences.Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filterLocked(func(o occurrences.Occurrence) bool {
		return o.Status == status && o.TakenAt == nil && w.Contains(o.ScheduledAt)
	}), nil
}

func (r *occurrenceRepo) filterLocked(keep func(occurrences.Occurrence) bool) []occurrences.Occurrence {
	out := make([]occurrences.Occurrence, 0)
	for _, o := range r.byID {
		if keep(o) {
			out = append(out, cloneOcc(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].DoseID < out[j].DoseID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

func (r *occurrenceRepo) AdvanceStatuses(ctx context.Context, now, missedCutoff time.Time) (occurrences.AdvanceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res occurrences.AdvanceResult
	for id, o := range r.byID {
		if o.Status == occurrences.StatusScheduled && !o.ScheduledAt.After(now) {
			o.Status = occurrences.StatusDue
			o.UpdatedAt = now
			r.byID[id] = o
			res.Due++
		}
	}
	for id, o := range r.byID {
		if o.Status == occurrences.StatusDue && o.TakenAt == nil && !o.ScheduledAt.After(missedCutoff) {
			o.Status = occurrences.StatusMissed
			o.UpdatedAt = now
			r.byID[id] = o
			res.Missed++
		}
	}
	return res, nil
}

func (r *occurrenceRepo) Transition(ctx context.Context, id string, from []occurrences.Status, c occurrences.Change) (bool, error) {
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
			break
		}
	}
	if !allowed {
		return false, nil
	}

	o.Status = c.Status
	o.TakenAt = nil
	if c.TakenAt != nil {
		v := *c.TakenAt
		o.TakenAt = &v
	}
	if c.Note != nil {
		o.Note = *c.Note
	}
	o.UpdatedAt = c.UpdatedAt
	r.byID[id] = o
	return true, nil
}

func (r *occurrenceRepo) userLock(userID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	m, ok := r.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[userID] = m
	}
	return m
}

// WithinUserTx acumula los inserts y los aplica solo si fn termina sin error.
func (r *occurrenceRepo) WithinUserTx(ctx context.Context, userID string, fn func(tx occurrences.Tx) error) error {
	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &occurrenceTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range tx.pending {
		k := uniqueKey(o.DoseID, o.ScheduledAt)
		if _, exists := r.unique[k]; exists {
			continue
		}
		if _, exists := r.byID[o.ID]; exists {
			return errors.New("occurrence already exists")
		}
		r.unique[k] = o.ID
		r.byID[o.ID] = o
	}
	return nil
}

type occurrenceTx struct {
	repo    *occurrenceRepo
	pending []occurrences.Occurrence
}

func (t *occurrenceTx) ListByUser(ctx context.Context, userID string, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return t.repo.ListByUser(ctx, userID, w)
}

func (t *occurrenceTx) ExistingTimes(ctx context.Context, doseID string, w occurrences.Window) ([]time.Time, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	out := make([]time.Time, 0)
	for _, o := range t.repo.byID {
		if o.DoseID == doseID && w.Contains(o.ScheduledAt) {
			out = append(out, o.ScheduledAt)
		}
	}
	return out, nil
}

// InsertBatch cuenta como insertadas las que no chocan con (dose, scheduledAt).
func (t *occurrenceTx) InsertBatch(ctx context.Context, items []occurrences.Occurrence) (int, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	seen := make(map[string]struct{}, len(items))
	n := 0
	for _, o := range items {
		if o.ID == "" {
			return 0, errors.New("occurrence id required")
		}
		k := uniqueKey(o.DoseID, o.ScheduledAt)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, exists := t.repo.unique[k]; exists {
			continue
		}
		t.pending = append(t.pending, cloneOcc(o))
		n++
	}
	return n, nil
}

func cloneOcc(o occurrences.Occurrence) occurrences.Occurrence {
	if o.TakenAt != nil {
		v := *o.TakenAt
		o.TakenAt = &v
	}
	return o
}
