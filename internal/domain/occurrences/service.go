package occurrences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/ports/dispense"
	"medication-schedule/internal/ports/notify"
)

// MissedAfter es cuánto puede quedar DUE una ocurrencia sin confirmarse.
// También es la antigüedad a partir de la cual ya no se puede editar.
const MissedAfter = 24 * time.Hour

// DoseSource es lo que el generador necesita de las dosis.
// *doses.Service y doses.Repository lo cumplen.
type DoseSource interface {
	ListByUser(ctx context.Context, userID string) ([]doses.Dose, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

type Options struct {
	Dispenser dispense.Sink
	Notifier  notify.Sink
	Logger    logger.Logger
	// Location define el día de calendario para cupo y dispensador.
	Location *time.Location
}

type Service struct {
	repo      Repository
	doses     DoseSource
	dispenser dispense.Sink
	notifier  notify.Sink
	log       logger.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo Repository, doseSrc DoseSource, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:      repo,
		doses:     doseSrc,
		dispenser: opts.Dispenser,
		notifier:  opts.Notifier,
		log:       log.With(map[string]any{"component": "occurrences"}),
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Get(ctx context.Context, id string) (Occurrence, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Occurrence{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Occurrence{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Occurrence{}, fmt.Errorf("get occurrence %s: %w", id, err)
	}
	return o, nil
}

// List refresca estados y devuelve la ventana del usuario.
func (s *Service) List(ctx context.Context, userID string, from, to time.Time) ([]Occurrence, error) {
	w, err := s.window(userID, from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.RefreshDueAndMissed(ctx, s.now()); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, strings.TrimSpace(userID), w)
}

func (s *Service) window(userID string, from, to time.Time) (Window, error) {
	if strings.TrimSpace(userID) == "" {
		return Window{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if from.IsZero() || to.IsZero() {
		return Window{}, fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}
	return Window{From: from.In(s.loc), To: to.In(s.loc)}, nil
}

func (s *Service) dateOf(t time.Time) calendar.Date {
	return calendar.DateOf(t.In(s.loc))
}

func (s *Service) emit(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, n); err != nil {
		s.log.Warn("notification emit failed", map[string]any{
			"rule":    string(n.Rule),
			"user_id": n.UserID,
			"error":   err,
		})
	}
}

func notificationKey(rule notify.Rule, o Occurrence) string {
	return fmt.Sprintf("%s:occ=%s:user=%s", rule, o.ID, o.UserID)
}
