// Package token issues the 6-digit codes students type to mark attendance.
package token

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"attendancewizard/internal/metrics"
	"attendancewizard/internal/model"
)

// Repository is the slice of the store the issuer needs.
type Repository interface {
	SessionByID(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
	InsertToken(ctx context.Context, t model.Token) (model.Token, error)
	TokenByID(ctx context.Context, id int64) (model.Token, error)
	TokensBySession(ctx context.Context, sessionID int64) ([]model.Token, error)
	ListTokens(ctx context.Context) ([]model.Token, error)
	DeactivateToken(ctx context.Context, id int64) error
}

// Entry is a token as shown in history, with expiry derived at read time.
type Entry struct {
	model.Token
	Expired     bool              `json:"is_expired"`
	SessionDate string            `json:"session_date"`
	SessionKind model.SessionKind `json:"session_kind"`
}

// Service generates and lists tokens.
type Service struct {
	repo       Repository
	regularTTL time.Duration
	testTTL    time.Duration
	now        func() time.Time
	random     func() (string, error)
}

// NewService creates an issuer with the lifetimes for regular and test sessions.
func NewService(repo Repository, regularTTL, testTTL time.Duration) *Service {
	if regularTTL <= 0 {
		regularTTL = 5 * time.Minute
	}
	if testTTL <= 0 {
		testTTL = 24 * time.Hour
	}
	return &Service{repo: repo, regularTTL: regularTTL, testTTL: testTTL, now: time.Now, random: RandomValue}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTL returns the lifetime given to tokens of a session kind.
func (s *Service) TTL(kind model.SessionKind) time.Duration {
	if kind == model.KindTest {
		return s.testTTL
	}
	return s.regularTTL
}

// Generate issues a new active token for a session. Its expiry is fixed here
// and never recomputed.
func (s *Service) Generate(ctx context.Context, sessionID int64) (model.Token, error) {
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return model.Token{}, err
	}
	value, err := s.random()
	if err != nil {
		return model.Token{}, fmt.Errorf("generate token value: %w", err)
	}
	now := s.now().UTC()
	tok, err := s.repo.InsertToken(ctx, model.Token{
		SessionID: sess.ID,
		Value:     value,
		ExpiresAt: now.Add(s.TTL(sess.Kind)),
		Active:    true,
		CreatedAt: now,
	})
	if err != nil {
		return model.Token{}, err
	}
	metrics.TokensIssued.WithLabelValues(string(sess.Kind)).Inc()
	return tok, nil
}

// Get returns a token by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Token, error) {
	return s.repo.TokenByID(ctx, id)
}

// ListActive returns the tokens of a session that can still be submitted.
func (s *Service) ListActive(ctx context.Context, sessionID int64) ([]model.Token, error) {
	if _, err := s.repo.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	all, err := s.repo.TokensBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]model.Token, 0, len(all))
	for _, t := range all {
		if t.Usable(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// History returns every token ever issued, newest first. A non-zero
// sessionID restricts it to that session.
func (s *Service) History(ctx context.Context, sessionID int64) ([]Entry, error) {
	sessions, tokens, err := s.scope(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]Entry, 0, len(tokens))
	for _, t := range tokens {
		e := Entry{Token: t, Expired: t.Expired(now)}
		if sess, ok := sessions[t.SessionID]; ok {
			e.SessionDate = sess.Date.Format(model.DateLayout)
			e.SessionKind = sess.Kind
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) scope(ctx context.Context, sessionID int64) (map[int64]model.Session, []model.Token, error) {
	sessions := map[int64]model.Session{}
	if sessionID != 0 {
		sess, err := s.repo.SessionByID(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}
		sessions[sess.ID] = sess
		tokens, err := s.repo.TokensBySession(ctx, sessionID)
		return sessions, tokens, err
	}
	all, err := s.repo.ListSessions(ctx, model.SessionFilter{})
	if err != nil {
		return nil, nil, err
	}
	for _, sess := range all {
		sessions[sess.ID] = sess
	}
	tokens, err := s.repo.ListTokens(ctx)
	return sessions, tokens, err
}

// Revoke deactivates a token. A revoked token is never valid again.
func (s *Service) Revoke(ctx context.Context, id int64) error {
	return s.repo.DeactivateToken(ctx, id)
}

var million = big.NewInt(1_000_000)

// RandomValue returns a uniformly random zero-padded 6-digit string.
func RandomValue() (string, error) {
	n, err := rand.Int(rand.Reader, million)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
