package store

import (
	"context"
	"time"

	"attendancewizard/internal/model"
	"attendancewizard/internal/store/memory"
)

// Backend is the full method set shared by the SQL and in-memory stores.
type Backend interface {
	Ping(ctx context.Context) error
	Close() error

	StudentByUIN(ctx context.Context, uin string) (model.Student, error)
	StudentByID(ctx context.Context, id int64) (model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	InsertStudentIfAbsent(ctx context.Context, uin, name string) (bool, error)
	ActivateStudent(ctx context.Context, id int64, hash string) error
	ResetStudentCredential(ctx context.Context, id int64, hash string) error

	SessionByID(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
	CreateTestSessions(ctx context.Context, day time.Time, target int, now time.Time) ([]model.Session, error)
	CreateRegularSessions(ctx context.Context, days []time.Time, now time.Time) ([]model.Session, error)
	DeleteSession(ctx context.Context, id int64) error
	CountSessions(ctx context.Context) (total, regular int, err error)

	InsertToken(ctx context.Context, t model.Token) (model.Token, error)
	TokenByID(ctx context.Context, id int64) (model.Token, error)
	TokensBySession(ctx context.Context, sessionID int64) ([]model.Token, error)
	ListTokens(ctx context.Context) ([]model.Token, error)
	FindTokens(ctx context.Context, sessionID int64, value string) ([]model.Token, error)
	DeactivateToken(ctx context.Context, id int64) error

	InsertAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	AttendanceExists(ctx context.Context, studentID, sessionID int64) (bool, error)
	AttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error)
	AttendanceBySession(ctx context.Context, sessionID int64) ([]model.AttendanceRecord, error)
	RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceRecord, error)
	CountAttendance(ctx context.Context) (int, error)

	LoadSettings(ctx context.Context, now time.Time) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

var (
	_ Backend = (*DB)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Open returns the backend named by url: "memory" for the in-process store,
// anything else is handed to NewDB.
func Open(ctx context.Context, url string) (Backend, error) {
	if url == "memory" {
		return memory.New(), nil
	}
	return NewDB(ctx, url)
}
