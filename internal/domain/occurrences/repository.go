package occurrences

import (
	"context"
	"time"
)

// Window es un rango cerrado [From, To] sobre ScheduledAt.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Change describe el UPDATE de una transición explícita.
type Change struct {
	Status    Status
	TakenAt   *time.Time // nil = limpiar
	Note      *string    // nil = no tocar
	UpdatedAt time.Time
}

// AdvanceResult cuenta filas movidas por la transición automática.
type AdvanceResult struct {
	Due    int
	Missed int
}

// Repository: GetByID devuelve un error que cumple errors.Is(err, ErrNotFound)
// cuando la ocurrencia no existe.
type Repository interface {
	GetByID(ctx context.Context, id string) (Occurrence, error)

	// ListByUser devuelve las ocurrencias del usuario en la ventana, ordenadas por ScheduledAt asc.
	ListByUser(ctx context.Context, userID string, w Window) ([]Occurrence, error)

	// ListByStatus devuelve ocurrencias con el status dado, sin TakenAt, en la ventana.
	ListByStatus(ctx context.Context, status Status, w Window) ([]Occurrence, error)

	// AdvanceStatuses hace, en este orden, dos UPDATE condicionales:
	//   SCHEDULED -> DUE    donde scheduled_at <= now
	//   DUE       -> MISSED donde taken_at IS NULL AND scheduled_at <= missedCutoff
	AdvanceStatuses(ctx context.Context, now, missedCutoff time.Time) (AdvanceResult, error)

	// Transition aplica change solo si el status actual está en from.
	// Devuelve false si ninguna fila coincidió (no existe o cambió de estado).
	Transition(ctx context.Context, id string, from []Status, change Change) (bool, error)

	// WithinUserTx ejecuta fn de forma atómica y serializada por usuario.
	// Si fn devuelve error no se persiste nada.
	WithinUserTx(ctx context.Context, userID string, fn func(tx Tx) error) error
}

// Tx son las operaciones disponibles dentro de WithinUserTx.
type Tx interface {
	ListByUser(ctx context.Context, userID string, w Window) ([]Occurrence, error)
	ExistingTimes(ctx context.Context, doseID string, w Window) ([]time.Time, error)
	// InsertBatch ignora conflictos (dose_id, scheduled_at) y devuelve cuántas insertó.
	InsertBatch(ctx context.Context, items []Occurrence) (int, error)
}
