// Package attendance is the ledger: it validates token submissions and records
// at most one mark per student per session.
package attendance

import (
	"context"
	"errors"
	"time"

	"attendancewizard/internal/metrics"
	"attendancewizard/internal/model"
)

// Repository is the slice of the store the ledger needs.
type Repository interface {
	SessionByID(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
	FindTokens(ctx context.Context, sessionID int64, value string) ([]model.Token, error)
	InsertAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	AttendanceExists(ctx context.Context, studentID, sessionID int64) (bool, error)
	AttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error)
	AttendanceBySession(ctx context.Context, sessionID int64) ([]model.AttendanceRecord, error)
	RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceRecord, error)
	LoadSettings(ctx context.Context, now time.Time) (model.Settings, error)
}

// Window is the daily span of local hours, [Start, End), in which regular
// sessions accept marks.
type Window struct {
	Start int
	End   int
}

// Contains reports whether hour falls in the window.
func (w Window) Contains(hour int) bool { return hour >= w.Start && hour < w.End }

// SessionView is a session as seen by one student.
type SessionView struct {
	model.Session
	AlreadyMarked bool `json:"already_marked"`
	IsToday       bool `json:"is_today"`
}

// Service coordinates the ordered checks of a mark.
type Service struct {
	repo   Repository
	loc    *time.Location
	window Window
	now    func() time.Time
}

// NewService creates a ledger. loc is the zone of the classroom clock used
// for the day and window checks.
func NewService(repo Repository, loc *time.Location, window Window) *Service {
	if loc == nil {
		loc = time.Local
	}
	if window.End <= window.Start {
		window = Window{Start: 8, End: 9}
	}
	return &Service{repo: repo, loc: loc, window: window, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Window returns the configured marking window.
func (s *Service) Window() Window { return s.window }

// Mark records the student's presence at a session. The clock is read once,
// so the day, window and expiry checks all see the same instant.
func (s *Service) Mark(ctx context.Context, studentID, sessionID int64, value string) (model.AttendanceRecord, error) {
	rec, err := s.mark(ctx, studentID, sessionID, value, s.now())
	metrics.MarkAttempts.WithLabelValues(outcome(err)).Inc()
	return rec, err
}

func (s *Service) mark(ctx context.Context, studentID, sessionID int64, value string, now time.Time) (model.AttendanceRecord, error) {
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}

	local := now.In(s.loc)
	if !sess.Date.Equal(model.DateOf(local)) {
		return model.AttendanceRecord{}, model.ErrWrongDay
	}

	if !sess.IsTest() {
		settings, err := s.repo.LoadSettings(ctx, now.UTC())
		if err != nil {
			return model.AttendanceRecord{}, err
		}
		// coarse local-hour gate; token expiry below compares exact UTC instants
		if !settings.DisableTimeRestrictions && !s.window.Contains(local.Hour()) {
			return model.AttendanceRecord{}, model.ErrOutsideWindow
		}
	}

	tokens, err := s.repo.FindTokens(ctx, sessionID, value)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if !anyUsable(tokens, now) {
		return model.AttendanceRecord{}, model.ErrInvalidOrExpiredToken
	}

	marked, err := s.repo.AttendanceExists(ctx, studentID, sessionID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if marked {
		return model.AttendanceRecord{}, model.ErrAlreadyMarked
	}

	// the unique (student, session) constraint decides races the check above missed
	return s.repo.InsertAttendance(ctx, model.AttendanceRecord{
		StudentID: studentID,
		SessionID: sessionID,
		MarkedAt:  now.UTC(),
	})
}

func anyUsable(tokens []model.Token, now time.Time) bool {
	for _, t := range tokens {
		if t.Usable(now) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "marked"
	case errors.Is(err, model.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, model.ErrWrongDay):
		return "wrong_day"
	case errors.Is(err, model.ErrOutsideWindow):
		return "outside_window"
	case errors.Is(err, model.ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, model.ErrAlreadyMarked):
		return "already_marked"
	default:
		return "error"
	}
}

// Today returns today's sessions annotated for the student.
func (s *Service) Today(ctx context.Context, studentID int64) ([]SessionView, error) {
	today := model.DateOf(s.now().In(s.loc))
	return s.views(ctx, studentID, today, model.SessionFilter{On: today})
}

// Available returns today's and future sessions annotated for the student.
func (s *Service) Available(ctx context.Context, studentID int64) ([]SessionView, error) {
	today := model.DateOf(s.now().In(s.loc))
	return s.views(ctx, studentID, today, model.SessionFilter{From: today})
}

func (s *Service) views(ctx context.Context, studentID int64, today time.Time, f model.SessionFilter) ([]SessionView, error) {
	sessions, err := s.repo.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.AttendanceByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	marked := make(map[int64]bool, len(records))
	for _, r := range records {
		marked[r.SessionID] = true
	}
	out := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionView{
			Session:       sess,
			AlreadyMarked: marked[sess.ID],
			IsToday:       sess.Date.Equal(today),
		})
	}
	return out, nil
}

// Records returns the student's marks ordered by session date.
func (s *Service) Records(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error) {
	return s.repo.AttendanceByStudent(ctx, studentID)
}

// BySession returns every mark for a session.
func (s *Service) BySession(ctx context.Context, sessionID int64) ([]model.AttendanceRecord, error) {
	if _, err := s.repo.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.AttendanceBySession(ctx, sessionID)
}

// Recent returns the latest marks, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.AttendanceRecord, error) {
	return s.repo.RecentAttendance(ctx, limit)
}
