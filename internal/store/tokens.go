package store

import (
	"context"
	"database/sql"
	"errors"

	"attendancewizard/internal/model"
)

const tokenColumns = `id, session_id, token, expires_at, is_active, created_at`

func scanToken(row interface{ Scan(...any) error }) (model.Token, error) {
	var t model.Token
	err := row.Scan(&t.ID, &t.SessionID, &t.Value, &t.ExpiresAt, &t.Active, &t.CreatedAt)
	return t, err
}

// InsertToken stores a freshly minted token.
func (d *DB) InsertToken(ctx context.Context, t model.Token) (model.Token, error) {
	err := d.Client.QueryRowContext(ctx, `
		INSERT INTO session_tokens (session_id, token, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, t.SessionID, t.Value, t.ExpiresAt.UTC(), t.Active, t.CreatedAt.UTC()).Scan(&t.ID)
	if err != nil {
		return model.Token{}, err
	}
	return t, nil
}

// TokenByID returns a token or model.ErrNotFound.
func (d *DB) TokenByID(ctx context.Context, id int64) (model.Token, error) {
	t, err := scanToken(d.Client.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM session_tokens WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, model.ErrNotFound
	}
	return t, err
}

// TokensBySession returns every token ever issued for a session, newest first.
func (d *DB) TokensBySession(ctx context.Context, sessionID int64) ([]model.Token, error) {
	return d.queryTokens(ctx, `SELECT `+tokenColumns+` FROM session_tokens WHERE session_id = $1 ORDER BY id DESC`, sessionID)
}

// ListTokens returns the full token history, newest first.
func (d *DB) ListTokens(ctx context.Context) ([]model.Token, error) {
	return d.queryTokens(ctx, `SELECT `+tokenColumns+` FROM session_tokens ORDER BY id DESC`)
}

// FindTokens returns tokens of a session carrying value. Activity and expiry
// are judged by the caller against its own clock reading.
func (d *DB) FindTokens(ctx context.Context, sessionID int64, value string) ([]model.Token, error) {
	return d.queryTokens(ctx, `SELECT `+tokenColumns+` FROM session_tokens WHERE session_id = $1 AND token = $2 ORDER BY id DESC`, sessionID, value)
}

// DeactivateToken clears the active flag.
func (d *DB) DeactivateToken(ctx context.Context, id int64) error {
	res, err := d.Client.ExecContext(ctx, `UPDATE session_tokens SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *DB) queryTokens(ctx context.Context, query string, args ...any) ([]model.Token, error) {
	rows, err := d.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
