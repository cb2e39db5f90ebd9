package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medication-schedule/internal/domain/doses"
)

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

var _ doses.Repository = (*DosesRepo)(nil)

const doseColumns = `
	id, user_id, medication_id,
	frequency, weekdays, times,
	quantity_amount, quantity_unit,
	start_date, end_date,
	instructions,
	created_at, updated_at
`

func (r *DosesRepo) Create(ctx context.Context, d doses.Dose) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		d.ID,
		d.UserID,
		d.MedicationID,
		d.Frequency,
		encodeWeekdays(d.Weekdays),
		encodeTimes(d.Times),
		d.QuantityAmount,
		string(d.QuantityUnit),
		encodeDate(d.StartDate),
		encodeDate(d.EndDate),
		d.Instructions,
		toMillis(d.CreatedAt),
		toMillis(d.UpdatedAt),
	)
	return err
}

func (r *DosesRepo) Update(ctx context.Context, d doses.Dose) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doses SET
			frequency = ?,
			weekdays = ?,
			times = ?,
			quantity_amount = ?,
			quantity_unit = ?,
			start_date = ?,
			end_date = ?,
			instructions = ?,
			updated_at = ?
		WHERE id = ?
	`,
		d.Frequency,
		encodeWeekdays(d.Weekdays),
		encodeTimes(d.Times),
		d.QuantityAmount,
		string(d.QuantityUnit),
		encodeDate(d.StartDate),
		encodeDate(d.EndDate),
		d.Instructions,
		toMillis(d.UpdatedAt),
		d.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(doses.ErrNotFound)
	}
	return nil
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.Dose{}, notFound(doses.ErrNotFound)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+doseColumns+` FROM doses WHERE id = ?`, id)
	d, err := scanDose(row)
	if errors.Is(err, sql.ErrNoRows) {
		return doses.Dose{}, notFound(doses.ErrNotFound)
	}
	return d, err
}

func (r *DosesRepo) ListByUser(ctx context.Context, userID string) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DosesRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM doses ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDose(s scanner) (doses.Dose, error) {
	var d doses.Dose
	var weekdays, times, unit string
	var start, end sql.NullString
	var createdAt, updatedAt int64
	if err := s.Scan(
		&d.ID,
		&d.UserID,
		&d.MedicationID,
		&d.Frequency,
		&weekdays,
		&times,
		&d.QuantityAmount,
		&unit,
		&start,
		&end,
		&d.Instructions,
		&createdAt,
		&updatedAt,
	); err != nil {
		return doses.Dose{}, err
	}

	var err error
	if d.Weekdays, err = decodeWeekdays(weekdays); err != nil {
		return doses.Dose{}, err
	}
	if d.Times, err = decodeTimes(times); err != nil {
		return doses.Dose{}, err
	}
	if d.StartDate, err = decodeDate(start); err != nil {
		return doses.Dose{}, err
	}
	if d.EndDate, err = decodeDate(end); err != nil {
		return doses.Dose{}, err
	}
	d.QuantityUnit = doses.QuantityUnit(unit)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	return d, nil
}
