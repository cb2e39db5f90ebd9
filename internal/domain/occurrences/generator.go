package occurrences

import (
	"context"
	"errors"
	"strings"
	"time"

	"medication-schedule/internal/platform/calendar"

	"github.com/google/uuid"
)

// Generate materializa las ocurrencias faltantes del usuario en [from, to].
// Todo el lote se valida contra el cupo diario antes de insertar: si un solo
// día se pasa, no se inserta nada y se devuelve *CapacityError.
// Llamadas repetidas con la misma ventana no crean duplicados.
func (s *Service) Generate(ctx context.Context, userID string, from, to time.Time) ([]Occurrence, error) {
	w, err := s.window(userID, from, to)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)

	created := 0
	err = s.repo.WithinUserTx(ctx, userID, func(tx Tx) error {
		existing, err := tx.ListByUser(ctx, userID, s.dayBounds(w))
		if err != nil {
			return err
		}
		baseline := countByDate(existing, s.loc)

		list, err := s.doses.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		var candidates []Candidate
		for i := range list {
			times := Expand(&list[i], w.From, w.To)
			if len(times) == 0 {
				continue
			}
			have, err := tx.ExistingTimes(ctx, list[i].ID, w)
			if err != nil {
				return err
			}
			persisted := make(map[int64]struct{}, len(have))
			for _, t := range have {
				persisted[t.Unix()] = struct{}{}
			}
			for _, t := range times {
				if _, ok := persisted[t.Unix()]; ok {
					continue
				}
				candidates = append(candidates, Candidate{DoseID: list[i].ID, At: t, Date: s.dateOf(t)})
			}
		}

		if len(candidates) == 0 {
			return nil
		}
		if err := CheckCapacity(baseline, candidates, MaxPerDay); err != nil {
			return err
		}

		now := s.now()
		batch := make([]Occurrence, 0, len(candidates))
		for _, c := range candidates {
			batch = append(batch, Occurrence{
				ID:          uuid.NewString(),
				DoseID:      c.DoseID,
				UserID:      userID,
				ScheduledAt: c.At,
				Status:      StatusScheduled,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		n, err := tx.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		var capErr *CapacityError
		if errors.As(err, &capErr) {
			s.log.Warn("generation rejected by daily capacity", map[string]any{
				"user_id": userID,
				"days":    len(capErr.Days),
			})
		}
		return nil, err
	}

	s.log.Info("occurrences generated", map[string]any{
		"user_id": userID,
		"created": created,
		"from":    w.From.Format(time.RFC3339),
		"to":      w.To.Format(time.RFC3339),
	})

	// El lote ya está confirmado: un refresh fallido no lo invalida.
	if _, err := s.RefreshDueAndMissed(ctx, s.now()); err != nil {
		s.log.Warn("status refresh after generation failed", map[string]any{"user_id": userID, "error": err})
	}

	out, err := s.repo.ListByUser(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	s.syncDispenser(ctx, userID, out)
	return out, nil
}

// dayBounds extiende w a días completos en s.loc. El cupo es por fecha,
// no por ventana.
func (s *Service) dayBounds(w Window) Window {
	return Window{
		From: s.dateOf(w.From).Start(s.loc),
		To:   s.dateOf(w.To).End(s.loc),
	}
}

// GenerateForAllUsers corre Generate para cada usuario con dosis.
// Los errores por usuario se loguean y no cortan el recorrido.
func (s *Service) GenerateForAllUsers(ctx context.Context, from, to time.Time) (int, error) {
	users, err := s.doses.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	ok := 0
	for _, uid := range users {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		if _, err := s.Generate(ctx, uid, from, to); err != nil {
			s.log.Warn("nightly generation failed", map[string]any{"user_id": uid, "error": err})
			continue
		}
		ok++
	}
	return ok, nil
}

// syncDispenser envía la carga por día de la ventana. Best-effort.
func (s *Service) syncDispenser(ctx context.Context, userID string, items []Occurrence) {
	if s.dispenser == nil {
		return
	}
	ref, ok, err := s.dispenser.ResolveDevice(ctx, userID)
	if err != nil {
		s.log.Warn("dispenser lookup failed", map[string]any{"user_id": userID, "error": err})
		return
	}
	if !ok {
		return
	}

	load := map[calendar.Date]int{}
	for _, o := range items {
		load[s.dateOf(o.ScheduledAt)]++
	}
	if len(load) == 0 {
		return
	}
	if err := s.dispenser.ApplyDayLoad(ctx, ref, load); err != nil {
		s.log.Warn("dispenser load failed", map[string]any{"user_id": userID, "device": ref, "error": err})
	}
}
