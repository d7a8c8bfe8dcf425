package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"attendancewizard/internal/model"
)

const sessionColumns = `id, session_date, is_test, created_at`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var (
		s      model.Session
		isTest bool
	)
	if err := row.Scan(&s.ID, &s.Date, &isTest, &s.CreatedAt); err != nil {
		return model.Session{}, err
	}
	s.Date = model.DateOf(s.Date.UTC())
	s.Kind = model.KindRegular
	if isTest {
		s.Kind = model.KindTest
	}
	return s, nil
}

// SessionByID returns a session or model.ErrSessionNotFound.
func (d *DB) SessionByID(ctx context.Context, id int64) (model.Session, error) {
	s, err := scanSession(d.Client.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	return s, err
}

// ListSessions returns sessions matching f ordered by date.
func (d *DB) ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := []any{}
	clauses := []string{}
	if !f.On.IsZero() {
		args = append(args, f.On)
		clauses = append(clauses, "session_date = $"+itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "session_date >= $"+itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY session_date, id"

	rows, err := d.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateTestSessions tops the test sessions on day up to target inside one
// transaction. On Postgres the table is locked for the count so concurrent
// callers queue; SQLite transactions are opened IMMEDIATE by the DSN.
func (d *DB) CreateTestSessions(ctx context.Context, day time.Time, target int, now time.Time) ([]model.Session, error) {
	tx, err := d.Client.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if d.dialect == dialectPostgres {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE sessions IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return nil, err
		}
	}
	var existing int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE session_date = $1 AND is_test = TRUE
	`, day).Scan(&existing); err != nil {
		return nil, err
	}

	var created []model.Session
	for i := existing; i < target; i++ {
		s := model.Session{Date: day, Kind: model.KindTest, CreatedAt: now}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO sessions (session_date, is_test, created_at)
			VALUES ($1, TRUE, $2)
			RETURNING id
		`, day, now).Scan(&s.ID); err != nil {
			return nil, err
		}
		created = append(created, s)
	}
	return created, tx.Commit()
}

// CreateRegularSessions inserts one regular session per date not already
// present. The partial unique index on regular dates makes this a set union.
func (d *DB) CreateRegularSessions(ctx context.Context, days []time.Time, now time.Time) ([]model.Session, error) {
	tx, err := d.Client.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var created []model.Session
	for _, day := range days {
		s := model.Session{Date: day, Kind: model.KindRegular, CreatedAt: now}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sessions (session_date, is_test, created_at)
			VALUES ($1, FALSE, $2)
			ON CONFLICT DO NOTHING
			RETURNING id
		`, day, now).Scan(&s.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, s)
	}
	return created, tx.Commit()
}

// DeleteSession removes a session; tokens and attendance cascade.
func (d *DB) DeleteSession(ctx context.Context, id int64) error {
	res, err := d.Client.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// CountSessions returns the number of sessions overall and of regular ones.
func (d *DB) CountSessions(ctx context.Context) (total, regular int, err error) {
	err = d.Client.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_test THEN 0 ELSE 1 END), 0) FROM sessions
	`).Scan(&total, &regular)
	return total, regular, err
}
