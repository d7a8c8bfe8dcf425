// Package grading turns attendance into percentages and grade points.
package grading

import (
	"context"
	"math"
	"time"

	"attendancewizard/internal/model"
)

// Repository is the slice of the store grading needs.
type Repository interface {
	StudentByID(ctx context.Context, id int64) (model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
	CountSessions(ctx context.Context) (total, regular int, err error)
	AttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error)
	CountAttendance(ctx context.Context) (int, error)
	RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceRecord, error)
}

// Stats summarizes one student's attendance. Percentage and GradePoints only
// ever consider regular sessions.
type Stats struct {
	TotalSessions   int     `json:"total_sessions"`
	TotalRegular    int     `json:"total_regular_sessions"`
	AttendedAll     int     `json:"attended_sessions"`
	AttendedRegular int     `json:"attended_regular_sessions"`
	AttendedTest    int     `json:"attended_test_sessions"`
	Percentage      float64 `json:"attendance_percentage"`
	GradePoints     int     `json:"grade_points"`
}

// Row is one line of the grade report.
type Row struct {
	UIN  string `json:"uin"`
	Name string `json:"name"`
	Stats
}

// Dashboard is the administrator overview.
type Dashboard struct {
	TotalStudents      int                      `json:"total_students"`
	RegisteredStudents int                      `json:"total_registered_students"`
	TotalSessions      int                      `json:"total_sessions"`
	TotalAttendances   int                      `json:"total_attendances"`
	TodaySessions      []model.Session          `json:"today_sessions"`
	RecentAttendances  []model.AttendanceRecord `json:"recent_attendances"`
}

// Engine computes stats from the store.
type Engine struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewEngine creates a grading engine. loc decides which sessions are today's
// on the dashboard.
func NewEngine(repo Repository, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{repo: repo, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GradePoints maps a percentage onto the four grade tiers. Each tier includes
// its lower bound.
func GradePoints(p float64) int {
	switch {
	case p >= 85:
		return 10
	case p >= 75:
		return 8
	case p >= 50:
		return 5
	default:
		return 0
	}
}

// Percentage is attended over total as a percentage, 0 when total is 0.
func Percentage(attended, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}

// Compute builds Stats from session totals and a student's records. Grade
// points come from the exact percentage; the reported one is rounded to two
// decimals.
func Compute(totalSessions, totalRegular int, records []model.AttendanceRecord) Stats {
	st := Stats{TotalSessions: totalSessions, TotalRegular: totalRegular, AttendedAll: len(records)}
	for _, r := range records {
		if r.SessionKind == model.KindTest {
			st.AttendedTest++
		} else {
			st.AttendedRegular++
		}
	}
	p := Percentage(st.AttendedRegular, totalRegular)
	st.GradePoints = GradePoints(p)
	st.Percentage = math.Round(p*100) / 100
	return st
}

// StatsFor returns the stats of one student.
func (e *Engine) StatsFor(ctx context.Context, studentID int64) (Stats, error) {
	if _, err := e.repo.StudentByID(ctx, studentID); err != nil {
		return Stats{}, err
	}
	total, regular, err := e.repo.CountSessions(ctx)
	if err != nil {
		return Stats{}, err
	}
	records, err := e.repo.AttendanceByStudent(ctx, studentID)
	if err != nil {
		return Stats{}, err
	}
	return Compute(total, regular, records), nil
}

// Report returns one row per student ordered by name.
func (e *Engine) Report(ctx context.Context) ([]Row, error) {
	students, err := e.repo.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	total, regular, err := e.repo.CountSessions(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(students))
	for _, st := range students {
		records, err := e.repo.AttendanceByStudent(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{UIN: st.UIN, Name: st.Name, Stats: Compute(total, regular, records)})
	}
	return rows, nil
}

// Dashboard gathers the administrator overview.
func (e *Engine) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	students, err := e.repo.ListStudents(ctx)
	if err != nil {
		return d, err
	}
	d.TotalStudents = len(students)
	for _, st := range students {
		if st.Registered {
			d.RegisteredStudents++
		}
	}
	if d.TotalSessions, _, err = e.repo.CountSessions(ctx); err != nil {
		return d, err
	}
	if d.TotalAttendances, err = e.repo.CountAttendance(ctx); err != nil {
		return d, err
	}
	today := model.DateOf(e.now().In(e.loc))
	if d.TodaySessions, err = e.repo.ListSessions(ctx, model.SessionFilter{On: today}); err != nil {
		return d, err
	}
	if d.RecentAttendances, err = e.repo.RecentAttendance(ctx, 10); err != nil {
		return d, err
	}
	return d, nil
}
