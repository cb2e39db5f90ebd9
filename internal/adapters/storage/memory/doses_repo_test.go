package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/platform/calendar"
)

func TestDoseRepo_CRUDAndIsolation(t *testing.T) {
	repo := NewDoseRepo()
	ctx := context.Background()

	d := doses.Dose{
		ID:        "d1",
		UserID:    "u1",
		Frequency: 1,
		Times:     []calendar.TimeOfDay{{Hour: 9}},
		Weekdays:  []time.Weekday{time.Monday},
	}
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, d); err == nil {
		t.Fatalf("expected duplicate error")
	}

	// Mutar el slice original no afecta lo guardado.
	d.Times[0].Hour = 22
	got, err := repo.GetByID(ctx, "d1")
	if err != nil || got.Times[0].Hour != 9 {
		t.Fatalf("expected stored copy, got %+v %v", got, err)
	}

	if err := repo.Update(ctx, doses.Dose{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) || !errors.Is(err, doses.ErrNotFound) {
		t.Fatalf("expected store and domain ErrNotFound, got %v", err)
	}

	_ = repo.Create(ctx, doses.Dose{ID: "d2", UserID: "u2", Frequency: 1})
	users, _ := repo.ListUserIDs(ctx)
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Fatalf("unexpected users: %v", users)
	}
	list, _ := repo.ListByUser(ctx, "u1")
	if len(list) != 1 || list[0].ID != "d1" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
