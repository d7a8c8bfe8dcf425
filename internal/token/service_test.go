package token

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"attendancewizard/internal/model"
	"attendancewizard/internal/store/memory"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestRandomValueFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		v, err := RandomValue()
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if !sixDigits.MatchString(v) {
			t.Fatalf("bad token value %q", v)
		}
	}
}

func fixture(t *testing.T) (*Service, *memory.Store, model.Session, model.Session, *time.Time) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	regular, err := st.CreateRegularSessions(ctx, []time.Time{day}, now)
	if err != nil {
		t.Fatalf("regular: %v", err)
	}
	tests, err := st.CreateTestSessions(ctx, day, 1, now)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	clock := now
	svc := NewService(st, 5*time.Minute, 24*time.Hour).WithClock(func() time.Time { return clock })
	return svc, st, regular[0], tests[0], &clock
}

func TestGenerateExpiryByKind(t *testing.T) {
	ctx := context.Background()
	svc, _, regular, test, clock := fixture(t)

	rt, err := svc.Generate(ctx, regular.ID)
	if err != nil {
		t.Fatalf("generate regular: %v", err)
	}
	if got := rt.ExpiresAt.Sub(rt.CreatedAt); got != 5*time.Minute {
		t.Fatalf("regular ttl: got %v", got)
	}
	tt, err := svc.Generate(ctx, test.ID)
	if err != nil {
		t.Fatalf("generate test: %v", err)
	}
	if got := tt.ExpiresAt.Sub(tt.CreatedAt); got != 24*time.Hour {
		t.Fatalf("test ttl: got %v", got)
	}
	if !rt.Active || !sixDigits.MatchString(rt.Value) || !rt.CreatedAt.Equal(*clock) {
		t.Fatalf("unexpected token %+v", rt)
	}
}

func TestGenerateUnknownSession(t *testing.T) {
	svc, _, _, _, _ := fixture(t)
	if _, err := svc.Generate(context.Background(), 999); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListActiveBoundary(t *testing.T) {
	ctx := context.Background()
	svc, _, regular, _, clock := fixture(t)
	tok, err := svc.Generate(ctx, regular.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	*clock = tok.ExpiresAt
	active, _ := svc.ListActive(ctx, regular.ID)
	if len(active) != 1 {
		t.Fatalf("token should be active exactly at expiry, got %d", len(active))
	}
	*clock = tok.ExpiresAt.Add(time.Second)
	active, _ = svc.ListActive(ctx, regular.ID)
	if len(active) != 0 {
		t.Fatalf("token should be inactive after expiry, got %d", len(active))
	}
}

func TestHistoryDerivesExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _, regular, test, clock := fixture(t)
	if _, err := svc.Generate(ctx, regular.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Generate(ctx, test.ID); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(time.Hour)

	all, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	// newest first: the test-session token
	if all[0].SessionKind != model.KindTest || all[0].Expired {
		t.Fatalf("unexpected first entry %+v", all[0])
	}
	if all[1].SessionKind != model.KindRegular || !all[1].Expired {
		t.Fatalf("unexpected second entry %+v", all[1])
	}
	if all[1].SessionDate != "2026-02-02" {
		t.Fatalf("session date: %q", all[1].SessionDate)
	}

	one, err := svc.History(ctx, regular.ID)
	if err != nil || len(one) != 1 {
		t.Fatalf("session history: %v %d", err, len(one))
	}
	if _, err := svc.History(ctx, 999); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	svc, _, regular, _, _ := fixture(t)
	tok, _ := svc.Generate(ctx, regular.ID)
	if err := svc.Revoke(ctx, tok.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, _ := svc.ListActive(ctx, regular.ID)
	if len(active) != 0 {
		t.Fatalf("revoked token listed as active")
	}
	if err := svc.Revoke(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
