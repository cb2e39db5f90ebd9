package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"medication-schedule/internal/domain/doses"
)

var (
	ErrNotFound = errors.New("not found")
)

// notFound conserva el sentinel del adapter y el del dominio.
func notFound(domain error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, domain)
}

type doseRepo struct {
	mu   sync.RWMutex
	byID map[string]doses.Dose
}

func NewDoseRepo() doses.Repository {
	return &doseRepo{
		byID: make(map[string]doses.Dose),
	}
}

func (r *doseRepo) Create(ctx context.Context, d doses.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dose id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dose already exists")
	}
	r.byID[d.ID] = cloneDose(d)
	return nil
}

func (r *doseRepo) Update(ctx context.Context, d doses.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return notFound(doses.ErrNotFound)
	}
	r.byID[d.ID] = cloneDose(d)
	return nil
}

func (r *doseRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, notFound(doses.ErrNotFound)
	}
	return cloneDose(d), nil
}

func (r *doseRepo) ListByUser(ctx context.Context, userID string) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if d.UserID == userID {
			out = append(out, cloneDose(d))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *doseRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, d := range r.byID {
		if _, ok := seen[d.UserID]; ok {
			continue
		}
		seen[d.UserID] = struct{}{}
		out = append(out, d.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// cloneDose evita compartir slices/punteros con el llamador.
func cloneDose(d doses.Dose) doses.Dose {
	if d.Weekdays != nil {
		d.Weekdays = append(d.Weekdays[:0:0], d.Weekdays...)
	}
	if d.Times != nil {
		d.Times = append(d.Times[:0:0], d.Times...)
	}
	if d.StartDate != nil {
		v := *d.StartDate
		d.StartDate = &v
	}
	if d.EndDate != nil {
		v := *d.EndDate
		d.EndDate = &v
	}
	return d
}
