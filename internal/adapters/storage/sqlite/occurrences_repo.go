package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"medication-schedule/internal/domain/occurrences"
)

type OccurrencesRepo struct {
	db *sql.DB

	// BEGIN IMMEDIATE ya serializa escritores entre procesos; el lock por
	// usuario evita esperar busy_timeout dentro del mismo proceso.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewOccurrencesRepo(db *sql.DB) *OccurrencesRepo {
	return &OccurrencesRepo{db: db, locks: map[string]*sync.Mutex{}}
}

var _ occurrences.Repository = (*OccurrencesRepo)(nil)

const occurrenceColumns = `
	id, dose_id, user_id,
	scheduled_at, status,
	taken_at, note,
	created_at, updated_at
`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *OccurrencesRepo) GetByID(ctx context.Context, id string) (occurrences.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM dose_occurrences WHERE id = ?`, strings.TrimSpace(id))
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
		WHERE user_id = ? AND scheduled_at BETWEEN ? AND ?
		ORDER BY scheduled_at ASC, dose_id ASC
	`, userID, toMillis(w.From), toMillis(w.To))
}

func (r *OccurrencesRepo) ListByStatus(ctx context.Context, status occurrences.Status, w occurrences.Window) ([]occurrences.Occurrence, error) {
	return queryOccurrences(ctx, r.db, `
		SELECT `+occurrenceColumns+`
		FROM dose_occurrences
		WHERE status = ? AND taken_at IS NULL AND scheduled_at BETWEEN ? AND ?
		ORDER BY scheduled_at ASC
	`, string(status), toMillis(w.From), toMillis(w.To))
}

func (r *OccurrencesRepo) AdvanceStatuses(ctx context.Context, now, missedCutoff time.Time) (occurrences.AdvanceResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return occurrences.AdvanceResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var res occurrences.AdvanceResult

	due, err := tx.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = ?, updated_at = ?
		WHERE status = ? AND scheduled_at <= ?
	`, string(occurrences.StatusDue), toMillis(now), string(occurrences.StatusScheduled), toMillis(now))
	if err != nil {
		return occurrences.AdvanceResult{}, err
	}
	n, _ := due.RowsAffected()
	res.Due = int(n)

	missed, err := tx.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = ?, updated_at = ?
		WHERE status = ? AND taken_at IS NULL AND scheduled_at <= ?
	`, string(occurrences.StatusMissed), toMillis(now), string(occurrences.StatusDue), toMillis(missedCutoff))
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

	args := []any{string(c.Status), nullMillis(c.TakenAt), c.Note, toMillis(c.UpdatedAt), id}
	ph := make([]string, 0, len(from))
	for _, s := range from {
		args = append(args, string(s))
		ph = append(ph, "?")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_occurrences
		SET status = ?,
			taken_at = ?,
			note = COALESCE(?, note),
			updated_at = ?
		WHERE id = ? AND status IN (`+strings.Join(ph, ",")+`)
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

func (r *OccurrencesRepo) userLock(userID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

func (r *OccurrencesRepo) WithinUserTx(ctx context.Context, userID string, fn func(tx occurrences.Tx) error) error {
	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

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
		WHERE dose_id = ? AND scheduled_at BETWEEN ? AND ?
	`, doseID, toMillis(w.From), toMillis(w.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]time.Time, 0)
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		out = append(out, fromMillis(ms))
	}
	return out, rows.Err()
}

func (t *occurrencesTx) InsertBatch(ctx context.Context, items []occurrences.Occurrence) (int, error) {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO dose_occurrences (`+occurrenceColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)
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
			toMillis(o.ScheduledAt),
			string(o.Status),
			nullMillis(o.TakenAt),
			o.Note,
			toMillis(o.CreatedAt),
			toMillis(o.UpdatedAt),
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
	var scheduledAt, createdAt, updatedAt int64
	var takenAt sql.NullInt64
	if err := s.Scan(
		&o.ID,
		&o.DoseID,
		&o.UserID,
		&scheduledAt,
		&status,
		&takenAt,
		&o.Note,
		&createdAt,
		&updatedAt,
	); err != nil {
		return occurrences.Occurrence{}, err
	}
	o.ScheduledAt = fromMillis(scheduledAt)
	o.Status = occurrences.Status(status)
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	if takenAt.Valid {
		v := fromMillis(takenAt.Int64)
		o.TakenAt = &v
	}
	return o, nil
}
