package handler

import (
	"time"

	"attendancewizard/internal/attendance"
	"attendancewizard/internal/model"
)

type sessionView struct {
	ID        int64             `json:"id"`
	Date      string            `json:"date"`
	Kind      model.SessionKind `json:"kind"`
	IsTest    bool              `json:"is_test_session"`
	CreatedAt time.Time         `json:"created_at"`
}

func newSessionView(s model.Session) sessionView {
	return sessionView{
		ID:        s.ID,
		Date:      s.Date.Format(model.DateLayout),
		Kind:      s.Kind,
		IsTest:    s.IsTest(),
		CreatedAt: s.CreatedAt,
	}
}

func sessionViews(in []model.Session) []sessionView {
	out := make([]sessionView, 0, len(in))
	for _, s := range in {
		out = append(out, newSessionView(s))
	}
	return out
}

type studentSessionView struct {
	sessionView
	AlreadyMarked bool `json:"already_marked"`
	IsToday       bool `json:"is_today"`
}

func studentSessionViews(in []attendance.SessionView) []studentSessionView {
	out := make([]studentSessionView, 0, len(in))
	for _, v := range in {
		out = append(out, studentSessionView{
			sessionView:   newSessionView(v.Session),
			AlreadyMarked: v.AlreadyMarked,
			IsToday:       v.IsToday,
		})
	}
	return out
}

type recordView struct {
	ID          int64             `json:"id"`
	StudentID   int64             `json:"student_id"`
	StudentUIN  string            `json:"student_uin"`
	StudentName string            `json:"student_name"`
	SessionID   int64             `json:"session_id"`
	SessionDate string            `json:"session_date"`
	SessionKind model.SessionKind `json:"session_kind"`
	IsTest      bool              `json:"is_test_session"`
	MarkedAt    time.Time         `json:"marked_at"`
}

func newRecordView(r model.AttendanceRecord) recordView {
	return recordView{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentUIN:  r.StudentUIN,
		StudentName: r.StudentName,
		SessionID:   r.SessionID,
		SessionDate: r.SessionDate.Format(model.DateLayout),
		SessionKind: r.SessionKind,
		IsTest:      r.SessionKind == model.KindTest,
		MarkedAt:    r.MarkedAt,
	}
}

func recordViews(in []model.AttendanceRecord) []recordView {
	out := make([]recordView, 0, len(in))
	for _, r := range in {
		out = append(out, newRecordView(r))
	}
	return out
}
