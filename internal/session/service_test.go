package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendancewizard/internal/model"
	"attendancewizard/internal/store/memory"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(now time.Time, preset ...time.Time) *Service {
	return NewService(memory.New(), time.UTC, 2, preset).WithClock(func() time.Time { return now })
}

func TestCreateTestSessionsNeverExceedsTarget(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC))

	first, err := svc.CreateTestSessions(ctx, 0, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 created, got %d", len(first))
	}
	second, err := svc.CreateTestSessions(ctx, 0, time.Time{})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected nothing created on repeat, got %d", len(second))
	}

	today, _ := svc.ListToday(ctx)
	if len(today) != 2 {
		t.Fatalf("expected 2 sessions today, got %d", len(today))
	}
	for _, s := range today {
		if s.Kind != model.KindTest {
			t.Fatalf("expected test session, got %s", s.Kind)
		}
		if !s.Date.Equal(day("2026-02-02")) {
			t.Fatalf("unexpected date %v", s.Date)
		}
	}
}

func TestCreateTestSessionsTopsUp(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC))

	if _, err := svc.CreateTestSessions(ctx, 1, day("2026-02-03")); err != nil {
		t.Fatalf("create: %v", err)
	}
	created, err := svc.CreateTestSessions(ctx, 3, day("2026-02-03"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 more, got %d", len(created))
	}
	// a different date is counted separately
	other, _ := svc.CreateTestSessions(ctx, 2, day("2026-02-04"))
	if len(other) != 2 {
		t.Fatalf("expected 2 on other date, got %d", len(other))
	}
}

func TestCreateRegularSessionsIsSetUnion(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	a, err := svc.CreateRegularSessions(ctx, []time.Time{day("2026-02-02"), day("2026-02-04"), day("2026-02-02")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(a) != 2 {
		t.Fatalf("expected 2, got %d", len(a))
	}
	b, err := svc.CreateRegularSessions(ctx, []time.Time{day("2026-02-04"), day("2026-02-06")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(b) != 1 || !b[0].Date.Equal(day("2026-02-06")) {
		t.Fatalf("expected only 2026-02-06, got %+v", b)
	}

	all, _ := svc.List(ctx)
	seen := map[string]int{}
	for _, s := range all {
		seen[s.Date.Format(model.DateLayout)]++
	}
	for d, n := range seen {
		if n != 1 {
			t.Fatalf("date %s has %d regular sessions", d, n)
		}
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
}

func TestRegularDedupIgnoresTestSessions(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC))
	if _, err := svc.CreateTestSessions(ctx, 2, time.Time{}); err != nil {
		t.Fatalf("create test: %v", err)
	}
	created, err := svc.CreateRegularSessions(ctx, []time.Time{day("2026-02-02")})
	if err != nil {
		t.Fatalf("create regular: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("regular session on a test-session date should be created, got %d", len(created))
	}
}

func TestCreateRegularSessionsPreset(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), day("2026-02-02"), day("2026-02-04"))
	created, err := svc.CreateRegularSessions(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected preset dates, got %d", len(created))
	}
}

func TestListFromAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC))
	created, _ := svc.CreateRegularSessions(ctx, []time.Time{day("2026-02-02"), day("2026-02-04"), day("2026-02-06")})

	from, err := svc.ListFrom(ctx, svc.Today())
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if len(from) != 2 || !from[0].Date.Equal(day("2026-02-04")) {
		t.Fatalf("unexpected sessions from today: %+v", from)
	}

	if err := svc.Delete(ctx, created[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created[0].ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, created[0].ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	now := time.Date(2026, 2, 3, 3, 0, 0, 0, time.UTC) // 21:00 on Feb 2 locally
	svc := NewService(memory.New(), loc, 2, nil).WithClock(func() time.Time { return now })
	if got := svc.Today(); !got.Equal(day("2026-02-02")) {
		t.Fatalf("today: got %v", got)
	}
}
