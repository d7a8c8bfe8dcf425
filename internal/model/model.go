package model

import "time"

// SessionKind distinguishes graded meetings from practice ones.
type SessionKind string

const (
	KindRegular SessionKind = "regular"
	KindTest    SessionKind = "test"
)

// Student is a roster entry. PasswordHash stays empty until the student registers.
type Student struct {
	ID           int64     `json:"id"`
	UIN          string    `json:"uin"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Registered   bool      `json:"is_registered"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a single class meeting. Date carries no time of day (midnight UTC).
type Session struct {
	ID        int64       `json:"id"`
	Date      time.Time   `json:"date"`
	Kind      SessionKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// IsTest reports whether the session is excluded from grading.
func (s Session) IsTest() bool { return s.Kind == KindTest }

// Token is a 6-digit code bound to one session.
type Token struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired is derived at read time and never stored.
func (t Token) Expired(now time.Time) bool { return t.ExpiresAt.Before(now) }

// Usable reports whether the token may still be submitted at now.
func (t Token) Usable(now time.Time) bool { return t.Active && !t.Expired(now) }

// AttendanceRecord marks one student present at one session.
type AttendanceRecord struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	SessionID int64     `json:"session_id"`
	MarkedAt  time.Time `json:"marked_at"`

	// joined from students and sessions on read
	StudentUIN  string      `json:"student_uin,omitempty"`
	StudentName string      `json:"student_name,omitempty"`
	SessionDate time.Time   `json:"session_date,omitempty"`
	SessionKind SessionKind `json:"session_kind,omitempty"`
}

// Settings is the process-wide operator override record.
type Settings struct {
	DisableTimeRestrictions bool      `json:"disable_time_restrictions"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// SessionFilter selects sessions by date. Zero values select everything.
type SessionFilter struct {
	On   time.Time
	From time.Time
}

// DateOf strips the time of day from t, keeping t's calendar date in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateLayout is the wire format of session dates.
const DateLayout = "2006-01-02"
