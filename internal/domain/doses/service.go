package doses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-schedule/internal/platform/calendar"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("dose not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	UserID         string
	MedicationID   string
	Frequency      int
	Weekdays       []time.Weekday
	Times          []calendar.TimeOfDay
	QuantityAmount float64
	QuantityUnit   QuantityUnit
	StartDate      *calendar.Date
	EndDate        *calendar.Date
	Instructions   string
}

// UpdateInput tiene semántica PATCH: nil = no tocar.
// Un slice no-nil pero vacío limpia el campo (Weekdays vacío = todos los días,
// Times vacío = horarios por defecto según Frequency).
type UpdateInput struct {
	Frequency      *int
	Weekdays       []time.Weekday
	Times          []calendar.TimeOfDay
	QuantityAmount *float64
	QuantityUnit   *QuantityUnit
	StartDate      *calendar.Date
	EndDate        *calendar.Date
	Instructions   *string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Dose, error) {
	userID := strings.TrimSpace(in.UserID)
	medID := strings.TrimSpace(in.MedicationID)
	if userID == "" || medID == "" {
		return Dose{}, fmt.Errorf("%w: user and medication are required", ErrInvalidInput)
	}

	now := s.now()

	unit := in.QuantityUnit
	if unit == "" {
		unit = UnitPill
	}
	amount := in.QuantityAmount
	if amount == 0 {
		amount = 1
	}

	// Sin fecha de inicio: arranca hoy.
	start := in.StartDate
	if start == nil {
		today := calendar.DateOf(now)
		start = &today
	}

	d := Dose{
		ID:             uuid.NewString(),
		UserID:         userID,
		MedicationID:   medID,
		Frequency:      in.Frequency,
		Weekdays:       normalizeWeekdays(in.Weekdays),
		Times:          normalizeTimes(in.Times),
		QuantityAmount: amount,
		QuantityUnit:   unit,
		StartDate:      start,
		EndDate:        in.EndDate,
		Instructions:   strings.TrimSpace(in.Instructions),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := validate(d); err != nil {
		return Dose{}, err
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return Dose{}, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Dose, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return Dose{}, err
	}

	if in.Frequency != nil {
		d.Frequency = *in.Frequency
	}
	if in.Weekdays != nil {
		d.Weekdays = normalizeWeekdays(in.Weekdays)
	}
	if in.Times != nil {
		d.Times = normalizeTimes(in.Times)
	}
	if in.QuantityAmount != nil {
		d.QuantityAmount = *in.QuantityAmount
	}
	if in.QuantityUnit != nil {
		d.QuantityUnit = *in.QuantityUnit
	}
	if in.StartDate != nil {
		v := *in.StartDate
		d.StartDate = &v
	}
	if in.EndDate != nil {
		v := *in.EndDate
		d.EndDate = &v
	}
	if in.Instructions != nil {
		d.Instructions = strings.TrimSpace(*in.Instructions)
	}

	if err := validate(d); err != nil {
		return Dose{}, err
	}

	d.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, d); err != nil {
		return Dose{}, err
	}
	return d, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Dose{}, ErrInvalidInput
	}
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Dose{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Dose{}, fmt.Errorf("get dose %s: %w", id, err)
	}
	return d, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Dose, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListUserIDs(ctx)
}

func validate(d Dose) error {
	if d.Frequency < MinFrequency || d.Frequency > MaxFrequency {
		return fmt.Errorf("%w: frequency must be between %d and %d", ErrInvalidInput, MinFrequency, MaxFrequency)
	}
	if len(d.Times) > 0 && len(d.Times) != d.Frequency {
		return fmt.Errorf("%w: times count (%d) must equal frequency (%d)", ErrInvalidInput, len(d.Times), d.Frequency)
	}
	for _, t := range d.Times {
		if !t.Valid() {
			return fmt.Errorf("%w: invalid time of day %s", ErrInvalidInput, t)
		}
	}
	for _, w := range d.Weekdays {
		if w < time.Sunday || w > time.Saturday {
			return fmt.Errorf("%w: invalid weekday %d", ErrInvalidInput, int(w))
		}
	}
	if d.QuantityAmount <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
	}
	if _, ok := ParseQuantityUnit(string(d.QuantityUnit)); !ok {
		return fmt.Errorf("%w: unknown quantity unit %q", ErrInvalidInput, d.QuantityUnit)
	}
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	if len(d.Instructions) > MaxInstructionsLen {
		return fmt.Errorf("%w: instructions too long", ErrInvalidInput)
	}
	return nil
}

func normalizeTimes(in []calendar.TimeOfDay) []calendar.TimeOfDay {
	if in == nil {
		return nil
	}
	seen := map[int]struct{}{}
	out := make([]calendar.TimeOfDay, 0, len(in))
	for _, t := range in {
		if _, ok := seen[t.Minutes()]; ok {
			continue
		}
		seen[t.Minutes()] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes() < out[j].Minutes() })
	return out
}

func normalizeWeekdays(in []time.Weekday) []time.Weekday {
	if in == nil {
		return nil
	}
	seen := map[time.Weekday]struct{}{}
	out := make([]time.Weekday, 0, len(in))
	for _, w := range in {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
