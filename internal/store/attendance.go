package store

import (
	"context"
	"database/sql"
	"errors"

	"attendancewizard/internal/model"
)

const attendanceSelect = `
	SELECT a.id, a.student_id, a.session_id, a.marked_at, st.uin, st.name, s.session_date, s.is_test
	FROM attendances a
	JOIN students st ON st.id = a.student_id
	JOIN sessions s ON s.id = a.session_id`

func scanAttendance(row interface{ Scan(...any) error }) (model.AttendanceRecord, error) {
	var (
		r      model.AttendanceRecord
		isTest bool
	)
	if err := row.Scan(&r.ID, &r.StudentID, &r.SessionID, &r.MarkedAt, &r.StudentUIN, &r.StudentName, &r.SessionDate, &isTest); err != nil {
		return model.AttendanceRecord{}, err
	}
	r.SessionDate = model.DateOf(r.SessionDate.UTC())
	r.SessionKind = model.KindRegular
	if isTest {
		r.SessionKind = model.KindTest
	}
	return r, nil
}

// InsertAttendance is the insert-if-absent primitive of the ledger. The
// unique (student_id, session_id) constraint is the final authority: a
// conflicting row, whether from a retry or a concurrent request, yields
// model.ErrAlreadyMarked and nothing is written. The stored row is read back
// with its student and session columns joined.
func (d *DB) InsertAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	var id int64
	err := d.Client.QueryRowContext(ctx, `
		INSERT INTO attendances (student_id, session_id, marked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, session_id) DO NOTHING
		RETURNING id
	`, rec.StudentID, rec.SessionID, rec.MarkedAt.UTC()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AttendanceRecord{}, model.ErrAlreadyMarked
	}
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return scanAttendance(d.Client.QueryRowContext(ctx, attendanceSelect+` WHERE a.id = $1`, id))
}

// AttendanceExists reports whether the student already has a record for the session.
func (d *DB) AttendanceExists(ctx context.Context, studentID, sessionID int64) (bool, error) {
	var one int
	err := d.Client.QueryRowContext(ctx, `
		SELECT 1 FROM attendances WHERE student_id = $1 AND session_id = $2
	`, studentID, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AttendanceByStudent returns a student's records ordered by session date.
func (d *DB) AttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error) {
	return d.queryAttendance(ctx, attendanceSelect+` WHERE a.student_id = $1 ORDER BY s.session_date, a.id`, studentID)
}

// AttendanceBySession returns a session's records in marking order.
func (d *DB) AttendanceBySession(ctx context.Context, sessionID int64) ([]model.AttendanceRecord, error) {
	return d.queryAttendance(ctx, attendanceSelect+` WHERE a.session_id = $1 ORDER BY a.id`, sessionID)
}

// RecentAttendance returns the latest records, newest first.
func (d *DB) RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return d.queryAttendance(ctx, attendanceSelect+` ORDER BY a.marked_at DESC, a.id DESC LIMIT $1`, limit)
}

// CountAttendance returns the number of attendance records.
func (d *DB) CountAttendance(ctx context.Context) (int, error) {
	var n int
	err := d.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendances`).Scan(&n)
	return n, err
}

func (d *DB) queryAttendance(ctx context.Context, query string, args ...any) ([]model.AttendanceRecord, error) {
	rows, err := d.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AttendanceRecord
	for rows.Next() {
		r, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
