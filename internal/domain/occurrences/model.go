package occurrences

import "time"

// Occurrence es una instancia concreta de una Dose en un instante ScheduledAt.
// (DoseID, ScheduledAt) es único. Solo la crea el generador; nunca se borra.
type Occurrence struct {
	ID     string
	DoseID string
	UserID string

	ScheduledAt time.Time
	Status      Status

	TakenAt *time.Time
	Note    string

	CreatedAt time.Time
	UpdatedAt time.Time
}
