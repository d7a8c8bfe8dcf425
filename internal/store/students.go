package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendancewizard/internal/model"
)

const studentColumns = `id, uin, name, password_hash, is_registered, created_at`

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var st model.Student
	err := row.Scan(&st.ID, &st.UIN, &st.Name, &st.PasswordHash, &st.Registered, &st.CreatedAt)
	return st, err
}

// StudentByUIN returns the student with the given external identifier.
func (d *DB) StudentByUIN(ctx context.Context, uin string) (model.Student, error) {
	st, err := scanStudent(d.Client.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE uin = $1`, uin))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, model.ErrNotFound
	}
	return st, err
}

// StudentByID returns the student with the given row id.
func (d *DB) StudentByID(ctx context.Context, id int64) (model.Student, error) {
	st, err := scanStudent(d.Client.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, model.ErrNotFound
	}
	return st, err
}

// ListStudents returns every student ordered by name.
func (d *DB) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := d.Client.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// InsertStudentIfAbsent creates an unregistered student; an existing uin is left untouched.
func (d *DB) InsertStudentIfAbsent(ctx context.Context, uin, name string) (bool, error) {
	res, err := d.Client.ExecContext(ctx, `
		INSERT INTO students (uin, name, password_hash, is_registered, created_at)
		VALUES ($1, $2, '', FALSE, $3)
		ON CONFLICT (uin) DO NOTHING
	`, uin, name, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ActivateStudent sets the first credential. Only unregistered rows are updated,
// so two racing registrations cannot both succeed.
func (d *DB) ActivateStudent(ctx context.Context, id int64, hash string) error {
	res, err := d.Client.ExecContext(ctx, `
		UPDATE students SET password_hash = $1, is_registered = TRUE
		WHERE id = $2 AND is_registered = FALSE
	`, hash, id)
	if err != nil {
		return err
	}
	return d.explainNoop(ctx, res, id, model.ErrAlreadyRegistered)
}

// ResetStudentCredential overwrites the credential of a registered student.
func (d *DB) ResetStudentCredential(ctx context.Context, id int64, hash string) error {
	res, err := d.Client.ExecContext(ctx, `
		UPDATE students SET password_hash = $1
		WHERE id = $2 AND is_registered = TRUE
	`, hash, id)
	if err != nil {
		return err
	}
	return d.explainNoop(ctx, res, id, model.ErrNotActivated)
}

// explainNoop turns a zero-row conditional update into ErrNotFound or stateErr.
func (d *DB) explainNoop(ctx context.Context, res sql.Result, id int64, stateErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := d.StudentByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}
