package doses

import "context"

// Repository: GetByID y Update devuelven un error que cumple
// errors.Is(err, ErrNotFound) cuando la dosis no existe.
type Repository interface {
	Create(ctx context.Context, d Dose) error
	Update(ctx context.Context, d Dose) error
	GetByID(ctx context.Context, id string) (Dose, error)
	ListByUser(ctx context.Context, userID string) ([]Dose, error)
	// ListUserIDs devuelve los usuarios distintos que tienen al menos una dosis.
	ListUserIDs(ctx context.Context) ([]string, error)
}
