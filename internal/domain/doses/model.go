package doses

import (
	"time"

	"medication-schedule/internal/platform/calendar"
)

// Dose es la definición de recurrencia de una medicación para un usuario asistido.
// Las ocurrencias concretas las genera el módulo occurrences.
type Dose struct {
	ID           string
	UserID       string
	MedicationID string

	// Frequency = tomas por día (1..24).
	Frequency int
	// Weekdays vacío = todos los días.
	Weekdays []time.Weekday
	// Times explícitos; si no está vacío, len(Times) == Frequency.
	Times []calendar.TimeOfDay

	QuantityAmount float64
	QuantityUnit   QuantityUnit

	StartDate *calendar.Date
	EndDate   *calendar.Date

	Instructions string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveOn indica si la dosis aplica al día de la semana indicado.
func (d Dose) ActiveOn(wd time.Weekday) bool {
	if len(d.Weekdays) == 0 {
		return true
	}
	for _, w := range d.Weekdays {
		if w == wd {
			return true
		}
	}
	return false
}
