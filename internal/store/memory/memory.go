// Package memory is a map-backed store for development and tests. It enforces
// the same uniqueness rules as the SQL schema under a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"attendancewizard/internal/model"
)

type pair struct{ student, session int64 }

// Store implements every repository method of the SQL store in memory.
type Store struct {
	mu sync.Mutex

	nextID   int64
	students map[int64]model.Student
	byUIN    map[string]int64
	sessions map[int64]model.Session
	tokens   map[int64]model.Token
	records  map[int64]model.AttendanceRecord
	marked   map[pair]int64
	settings *model.Settings
}

// New returns an empty store.
func New() *Store {
	return &Store{
		students: make(map[int64]model.Student),
		byUIN:    make(map[string]int64),
		sessions: make(map[int64]model.Session),
		tokens:   make(map[int64]model.Token),
		records:  make(map[int64]model.AttendanceRecord),
		marked:   make(map[pair]int64),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// -------- Students --------

func (s *Store) StudentByUIN(ctx context.Context, uin string) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUIN[uin]
	if !ok {
		return model.Student{}, model.ErrNotFound
	}
	return s.students[id], nil
}

func (s *Store) StudentByID(ctx context.Context, id int64) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return model.Student{}, model.ErrNotFound
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertStudentIfAbsent(ctx context.Context, uin, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUIN[uin]; ok {
		return false, nil
	}
	st := model.Student{ID: s.id(), UIN: uin, Name: name, CreatedAt: time.Now().UTC()}
	s.students[st.ID] = st
	s.byUIN[uin] = st.ID
	return true, nil
}

func (s *Store) ActivateStudent(ctx context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return model.ErrNotFound
	}
	if st.Registered {
		return model.ErrAlreadyRegistered
	}
	st.PasswordHash = hash
	st.Registered = true
	s.students[id] = st
	return nil
}

func (s *Store) ResetStudentCredential(ctx context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return model.ErrNotFound
	}
	if !st.Registered {
		return model.ErrNotActivated
	}
	st.PasswordHash = hash
	s.students[id] = st
	return nil
}

// -------- Sessions --------

func (s *Store) SessionByID(ctx context.Context, id int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Session
	for _, sess := range s.sessions {
		if !f.On.IsZero() && !sess.Date.Equal(f.On) {
			continue
		}
		if !f.From.IsZero() && sess.Date.Before(f.From) {
			continue
		}
		out = append(out, sess)
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(out []model.Session) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
}

func (s *Store) CreateTestSessions(ctx context.Context, day time.Time, target int, now time.Time) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := 0
	for _, sess := range s.sessions {
		if sess.IsTest() && sess.Date.Equal(day) {
			existing++
		}
	}
	var created []model.Session
	for i := existing; i < target; i++ {
		sess := model.Session{ID: s.id(), Date: day, Kind: model.KindTest, CreatedAt: now}
		s.sessions[sess.ID] = sess
		created = append(created, sess)
	}
	return created, nil
}

func (s *Store) CreateRegularSessions(ctx context.Context, days []time.Time, now time.Time) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := make(map[string]bool)
	for _, sess := range s.sessions {
		if !sess.IsTest() {
			taken[sess.Date.Format(model.DateLayout)] = true
		}
	}
	var created []model.Session
	for _, day := range days {
		key := day.Format(model.DateLayout)
		if taken[key] {
			continue
		}
		taken[key] = true
		sess := model.Session{ID: s.id(), Date: day, Kind: model.KindRegular, CreatedAt: now}
		s.sessions[sess.ID] = sess
		created = append(created, sess)
	}
	return created, nil
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return model.ErrSessionNotFound
	}
	delete(s.sessions, id)
	for tid, tok := range s.tokens {
		if tok.SessionID == id {
			delete(s.tokens, tid)
		}
	}
	for rid, rec := range s.records {
		if rec.SessionID == id {
			delete(s.records, rid)
			delete(s.marked, pair{rec.StudentID, rec.SessionID})
		}
	}
	return nil
}

func (s *Store) CountSessions(ctx context.Context) (total, regular int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		total++
		if !sess.IsTest() {
			regular++
		}
	}
	return total, regular, nil
}

// -------- Tokens --------

func (s *Store) InsertToken(ctx context.Context, t model.Token) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[t.SessionID]; !ok {
		return model.Token{}, model.ErrSessionNotFound
	}
	t.ID = s.id()
	s.tokens[t.ID] = t
	return t, nil
}

func (s *Store) TokenByID(ctx context.Context, id int64) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return model.Token{}, model.ErrNotFound
	}
	return t, nil
}

func (s *Store) TokensBySession(ctx context.Context, sessionID int64) ([]model.Token, error) {
	return s.filterTokens(func(t model.Token) bool { return t.SessionID == sessionID }), nil
}

func (s *Store) ListTokens(ctx context.Context) ([]model.Token, error) {
	return s.filterTokens(func(model.Token) bool { return true }), nil
}

func (s *Store) FindTokens(ctx context.Context, sessionID int64, value string) ([]model.Token, error) {
	return s.filterTokens(func(t model.Token) bool { return t.SessionID == sessionID && t.Value == value }), nil
}

func (s *Store) filterTokens(keep func(model.Token) bool) []model.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Token
	for _, t := range s.tokens {
		if keep(t) {
			out = append(out, t)
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) DeactivateToken(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return model.ErrNotFound
	}
	t.Active = false
	s.tokens[id] = t
	return nil
}

// -------- Attendance --------

// InsertAttendance is the insert-if-absent primitive: a second record for the
// same (student, session) pair yields model.ErrAlreadyMarked.
func (s *Store) InsertAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{rec.StudentID, rec.SessionID}
	if _, ok := s.marked[key]; ok {
		return model.AttendanceRecord{}, model.ErrAlreadyMarked
	}
	if _, ok := s.students[rec.StudentID]; !ok {
		return model.AttendanceRecord{}, model.ErrNotFound
	}
	if _, ok := s.sessions[rec.SessionID]; !ok {
		return model.AttendanceRecord{}, model.ErrSessionNotFound
	}
	rec.ID = s.id()
	s.records[rec.ID] = rec
	s.marked[key] = rec.ID
	return s.join(rec), nil
}

func (s *Store) AttendanceExists(ctx context.Context, studentID, sessionID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marked[pair{studentID, sessionID}]
	return ok, nil
}

func (s *Store) AttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error) {
	out := s.filterRecords(func(r model.AttendanceRecord) bool { return r.StudentID == studentID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.Before(out[j].SessionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) AttendanceBySession(ctx context.Context, sessionID int64) ([]model.AttendanceRecord, error) {
	out := s.filterRecords(func(r model.AttendanceRecord) bool { return r.SessionID == sessionID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceRecord, error) {
	out := s.filterRecords(func(model.AttendanceRecord) bool { return true })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MarkedAt.Equal(out[j].MarkedAt) {
			return out[i].MarkedAt.After(out[j].MarkedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountAttendance(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *Store) filterRecords(keep func(model.AttendanceRecord) bool) []model.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, s.join(r))
		}
	}
	return out
}

func (s *Store) join(r model.AttendanceRecord) model.AttendanceRecord {
	if st, ok := s.students[r.StudentID]; ok {
		r.StudentUIN, r.StudentName = st.UIN, st.Name
	}
	if sess, ok := s.sessions[r.SessionID]; ok {
		r.SessionDate, r.SessionKind = sess.Date, sess.Kind
	}
	return r
}

// -------- Settings --------

// LoadSettings returns the singleton, creating the default record on first read.
func (s *Store) LoadSettings(ctx context.Context, now time.Time) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		s.settings = &model.Settings{UpdatedAt: now}
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, in model.Settings) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &in
	return in, nil
}
