// Package session manages class meetings, regular and test.
package session

import (
	"context"
	"sort"
	"time"

	"attendancewizard/internal/model"
)

// Repository is the slice of the store the registry needs.
type Repository interface {
	SessionByID(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
	CreateTestSessions(ctx context.Context, day time.Time, target int, now time.Time) ([]model.Session, error)
	CreateRegularSessions(ctx context.Context, days []time.Time, now time.Time) ([]model.Session, error)
	DeleteSession(ctx context.Context, id int64) error
}

// Service is the session registry.
type Service struct {
	repo        Repository
	loc         *time.Location
	testPerDay  int
	presetDates []time.Time
	now         func() time.Time
}

// NewService creates a registry. loc decides what "today" means.
func NewService(repo Repository, loc *time.Location, testPerDay int, presetDates []time.Time) *Service {
	if loc == nil {
		loc = time.Local
	}
	if testPerDay <= 0 {
		testPerDay = 2
	}
	return &Service{repo: repo, loc: loc, testPerDay: testPerDay, presetDates: presetDates, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the current local calendar date.
func (s *Service) Today() time.Time {
	return model.DateOf(s.now().In(s.loc))
}

// Get returns a session or model.ErrSessionNotFound.
func (s *Service) Get(ctx context.Context, id int64) (model.Session, error) {
	return s.repo.SessionByID(ctx, id)
}

// CreateTestSessions tops up test sessions on day to count. A zero day means
// today and a non-positive count means the configured default. Repeated
// calls never push the day past count.
func (s *Service) CreateTestSessions(ctx context.Context, count int, day time.Time) ([]model.Session, error) {
	if count <= 0 {
		count = s.testPerDay
	}
	if day.IsZero() {
		day = s.Today()
	}
	return s.repo.CreateTestSessions(ctx, model.DateOf(day), count, s.now().UTC())
}

// CreateRegularSessions adds one regular session for each date not already
// scheduled. An empty list falls back to the configured semester dates.
func (s *Service) CreateRegularSessions(ctx context.Context, days []time.Time) ([]model.Session, error) {
	if len(days) == 0 {
		days = s.presetDates
	}
	return s.repo.CreateRegularSessions(ctx, uniqueDates(days), s.now().UTC())
}

// List returns every session ordered by date.
func (s *Service) List(ctx context.Context) ([]model.Session, error) {
	return s.repo.ListSessions(ctx, model.SessionFilter{})
}

// ListToday returns the sessions held today.
func (s *Service) ListToday(ctx context.Context) ([]model.Session, error) {
	return s.repo.ListSessions(ctx, model.SessionFilter{On: s.Today()})
}

// ListFrom returns sessions on or after day.
func (s *Service) ListFrom(ctx context.Context, day time.Time) ([]model.Session, error) {
	return s.repo.ListSessions(ctx, model.SessionFilter{From: model.DateOf(day)})
}

// Delete removes a session together with its tokens and attendance.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteSession(ctx, id)
}

func uniqueDates(days []time.Time) []time.Time {
	seen := make(map[string]bool, len(days))
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = model.DateOf(d)
		key := d.Format(model.DateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
