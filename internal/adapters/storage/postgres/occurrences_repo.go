package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medication-schedule/internal/domain/occurrences"
)

type OccurrencesRepo struct {
	db *sql.DB
}

func NewOccurrencesRepo(db *sql.DB) *OccurrencesRepo {
	return &OccurrencesRepo{db: db}
}

var _ occurrences.Repository = (*OccurrencesRepo)(nil)

const occurrenceColumns = `
	id, dose_id, user_id,
	scheduled_at, status,
	taken_at, note,
	created_at, updated_at
`

// querier lo cumplen *sql.DB y *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *OccurrencesRepo) GetByID(ctx context.Context, id string) (occurrences.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM dose_occurrences WHERE id = $1`, strings.TrimSpace(id))
	o, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return occurrences.Occurrence{}, notFound(occurrences.ErrNotFound)
	}
	return o, err
}

func (r *OccurrencesRepo) ListByUser(ctx context.Context, userID string, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return listByUser(ctx, r.db, userID, w)
}

func listByUser(ctx context.Context, q querier, userID string, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return queryOccurrences(ctx, q, `
		SELECT `+occurrenceColumns+`
		FROM dose_occurrences
		WHERE user_id = $1 AND scheduled_at BETWEEN $2 AND $3
		ORDER BY scheduled_at ASC, dose_id ASC
	`, userID, w.From, w.To)
}

func (r *OccurrencesRepo) ListByStatus(ctx context.Context, status occurrences.Status, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return queryOccurrences(ctx, r.db, `
		SELECT `+occurrenceColumns+`
		FROM dose_occurrences
		WHERE status = $1 AND taken_at IS NULL AND scheduled_at BETWEEN $2 AND $3
		ORDER BY scheduled_at ASC
	`, string(status), w.From, w.To)
}

// AdvanceStatuses corre ambos UPDATE en una transacción, en orden.
func (r *OccurrencesRepo) AdvanceStatuses(ctx context.Context, now, missedCutoff time.Time) (occurrences.AdvanceResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return occurrences.AdvanceResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var res occurrences.AdvanceResult

	due, err := tx.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = $1, updated_at = $2
		WHERE status = $3 AND scheduled_at <= $2
	`, string(occurrences.StatusDue), now, string(occurrences.StatusScheduled))
	if err != nil {
		return occurrences.AdvanceResult{}, err
	}
	n, _ := due.RowsAffected()
	res.Due = int(n)

	missed, err := tx.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = $1, updated_at = $2
		WHERE status = $3 AND taken_at IS NULL AND scheduled_at <= $4
	`, string(occurrences.StatusMissed), now, string(occurrences.StatusDue), missedCutoff)
	if err != nil {
		return occurrences.AdvanceResult{}, err
	}
	n, _ = missed.RowsAffected()
	res.Missed = int(n)

	if err := tx.Commit(); err != nil {
		return occurrences.AdvanceResult{}, err
	}
	return res, nil
}

func (r *OccurrencesRepo) Transition(ctx context.Context, id string, from []occurrences.Status, c occurrences.Change) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	args := []any{id, string(c.Status), c.TakenAt, c.Note, c.UpdatedAt}
	ph := make([]string, 0, len(from))
	for _, s := range from {
		args = append(args, string(s))
		ph = append(ph, fmt.Sprintf("$%d", len(args)))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = $2,
			taken_at = $3,
			note = COALESCE($4, note),
			updated_at = $5
		WHERE id = $1 AND status IN (`+strings.Join(ph, ",")+`)
	`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// WithinUserTx toma un advisory lock transaccional por usuario: dos
// generaciones del mismo usuario se serializan, usuarios distintos no se bloquean.
func (r *OccurrencesRepo) WithinUserTx(ctx context.Context, userID string, fn func(tx occurrences.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "occurrences:"+userID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	if err := fn(&occurrencesTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type occurrencesTx struct {
	tx *sql.Tx
}

func (t *occurrencesTx) ListByUser(ctx context.Context, userID string, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return listByUser(ctx, t.tx, userID, w)
}

func (t *occurrencesTx) ExistingTimes(ctx context.Context, doseID string, w occurrences.Window) ([]time.Time, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT scheduled_at
		FROM dose_occurrences
		WHERE dose_id = $1 AND scheduled_at BETWEEN $2 AND $3
	`, doseID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]time.Time, 0)
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (t *occurrencesTx) InsertBatch(ctx context.Context, items []occurrences.Occurrence) (int, error) {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO dose_occurrences (`+occurrenceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (dose_id, scheduled_at) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	total := 0
	for _, o := range items {
		res, err := stmt.ExecContext(ctx,
			o.ID,
			o.DoseID,
			o.UserID,
			o.ScheduledAt,
			string(o.Status),
			o.TakenAt,
			o.Note,
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

func queryOccurrences(ctx context.Context, q querier, query string, args ...any) ([]occurrences.Occurrence, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]occurrences.Occurrence, 0)
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOccurrence(s scanner) (occurrences.Occurrence, error) {
	var o occurrences.Occurrence
	var status string
	var takenAt sql.NullTime
	if err := s.Scan(
		&o.ID,
		&o.DoseID,
		&o.UserID,
		&o.ScheduledAt,
		&status,
		&takenAt,
		&o.Note,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return occurrences.Occurrence{}, err
	}
	o.Status = occurrences.Status(status)
	if takenAt.Valid {
		v := takenAt.Time
		o.TakenAt = &v
	}
	return o, nil
}
