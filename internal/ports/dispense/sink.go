package dispense

import (
	"context"

	"medication-schedule/internal/platform/calendar"
)

// Sink es el dispensador físico (o su simulación) que el motor de ocurrencias
// usa como efecto lateral. Las fallas son best-effort: quien llama solo loguea.
type Sink interface {
	// ResolveDevice devuelve el dispositivo asignado al usuario asistido.
	// ok=false si el usuario no tiene dispensador.
	ResolveDevice(ctx context.Context, userID string) (deviceRef string, ok bool, err error)

	// DispenseForDay descuenta una unidad del compartimento del día indicado.
	DispenseForDay(ctx context.Context, deviceRef string, day calendar.Date) error

	// ApplyDayLoad fija (idempotente) la carga esperada por día de calendario.
	ApplyDayLoad(ctx context.Context, deviceRef string, load map[calendar.Date]int) error
}
