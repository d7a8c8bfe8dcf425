package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"attendancewizard/internal/attendance"
	"attendancewizard/internal/auth"
	"attendancewizard/internal/grading"
	"attendancewizard/internal/identity"
	"attendancewizard/internal/model"
	"attendancewizard/internal/queue"
	"attendancewizard/internal/report"
	"attendancewizard/internal/session"
	"attendancewizard/internal/settings"
	"attendancewizard/internal/store/memory"
	"attendancewizard/internal/token"
)

const gradebookCSV = "Student,ID,SIS User ID\n" +
	"Points Possible,,\n" +
	"\"Gu, Shuning\",1,936002232\n" +
	"\"Doe, Jane\",2,100000001\n" +
	"\"Student, Test\",3,999\n"

type testServer struct {
	t *testing.T
	r *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memory.New()
	h := New(Deps{
		Identity:  identity.NewService(st, auth.NewBcrypt(bcrypt.MinCost)),
		Sessions:  session.NewService(st, time.UTC, 2, nil),
		Tokens:    token.NewService(st, 5*time.Minute, 24*time.Hour),
		Ledger:    attendance.NewService(st, time.UTC, attendance.Window{Start: 8, End: 9}),
		Grades:    grading.NewEngine(st, time.UTC),
		Settings:  settings.NewService(st),
		Exports:   report.NewExporter(grading.NewEngine(st, time.UTC), queue.NewInMemory(4), t.TempDir()),
		Issuer:    auth.NewIssuer("test-key", "attendance-test", time.Hour),
		Admins:    auth.Admins{"prof": "pw"},
		PublicURL: "https://class.example.edu/",
	})
	r := gin.New()
	h.Register(r, nil)
	return &testServer{t: t, r: r}
}

func (s *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status %d, want %d: %s", w.Code, status, w.Body.String())
	}
}

func (s *testServer) adminToken() string {
	w := s.do(http.MethodPost, "/api/admin/login", "", gin.H{"username": "prof", "password": "pw"})
	expect(s.t, w, http.StatusOK)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decode(s.t, w, &out)
	return out.AccessToken
}

func (s *testServer) importRoster(admin string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "grades.csv")
	fw.Write([]byte(gradebookCSV))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/students/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	expect(s.t, w, http.StatusOK)

	var out struct{ Added, Skipped int }
	decode(s.t, w, &out)
	if out.Added != 2 || out.Skipped != 1 {
		s.t.Fatalf("unexpected import result %+v", out)
	}
}

func (s *testServer) studentToken(uin, name, password string) string {
	expect(s.t, s.do(http.MethodPost, "/api/student/register", "", gin.H{"uin": uin, "name": name, "password": password}), http.StatusCreated)
	w := s.do(http.MethodPost, "/api/student/login", "", gin.H{"uin": uin, "password": password})
	expect(s.t, w, http.StatusOK)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decode(s.t, w, &out)
	return out.AccessToken
}

func TestStudentMarksTestSession(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	s.importRoster(admin)
	student := s.studentToken("936002232", "gu, shuning", "secret")

	w := s.do(http.MethodPost, "/api/admin/sessions/create-test", admin, nil)
	expect(t, w, http.StatusOK)
	var created struct {
		Sessions []struct {
			ID     int64 `json:"id"`
			IsTest bool  `json:"is_test_session"`
		} `json:"sessions"`
	}
	decode(t, w, &created)
	if len(created.Sessions) != 2 || !created.Sessions[0].IsTest {
		t.Fatalf("unexpected sessions %+v", created)
	}
	sessionID := created.Sessions[0].ID

	w = s.do(http.MethodPost, "/api/admin/tokens/generate", admin, gin.H{"session_id": sessionID})
	expect(t, w, http.StatusCreated)
	var tok struct {
		Token string `json:"token"`
	}
	decode(t, w, &tok)

	w = s.do(http.MethodGet, "/api/student/sessions/today", student, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"already_marked":false`) {
		t.Fatalf("unexpected today listing %s", w.Body.String())
	}

	wrong := "000000"
	if tok.Token == wrong {
		wrong = "111111"
	}
	expect(t, s.do(http.MethodPost, "/api/student/attendance/mark", student, gin.H{"session_id": sessionID, "token": wrong}), http.StatusForbidden)
	for _, bad := range []string{"12ab", "+12345", "-12345", "1.2345", "1234567"} {
		expect(t, s.do(http.MethodPost, "/api/student/attendance/mark", student, gin.H{"session_id": sessionID, "token": bad}), http.StatusBadRequest)
	}
	expect(t, s.do(http.MethodPost, "/api/student/attendance/mark", student, gin.H{"session_id": 9999, "token": tok.Token}), http.StatusNotFound)
	expect(t, s.do(http.MethodPost, "/api/student/attendance/mark", student, gin.H{"session_id": sessionID, "token": tok.Token}), http.StatusCreated)

	w = s.do(http.MethodPost, "/api/student/attendance/mark", student, gin.H{"session_id": sessionID, "token": tok.Token})
	expect(t, w, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), "already marked") {
		t.Fatalf("unexpected duplicate response %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/student/attendance/my-records", student, nil)
	expect(t, w, http.StatusOK)
	var mine struct {
		Statistics grading.Stats `json:"statistics"`
		Records    []recordView  `json:"records"`
	}
	decode(t, w, &mine)
	if mine.Statistics.AttendedTest != 1 || mine.Statistics.TotalRegular != 0 || mine.Statistics.GradePoints != 0 {
		t.Fatalf("unexpected stats %+v", mine.Statistics)
	}
	if len(mine.Records) != 1 || !mine.Records[0].IsTest {
		t.Fatalf("unexpected records %+v", mine.Records)
	}

	w = s.do(http.MethodGet, "/api/admin/attendance/session/"+itoa(sessionID), admin, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Gu, Shuning") {
		t.Fatalf("session attendance missing student: %s", w.Body.String())
	}
}

func TestCreateTestSessionsIsCapped(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	expect(t, s.do(http.MethodPost, "/api/admin/sessions/create-test", admin, nil), http.StatusOK)
	w := s.do(http.MethodPost, "/api/admin/sessions/create-test", admin, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"sessions":[]`) {
		t.Fatalf("expected no new sessions: %s", w.Body.String())
	}
	w = s.do(http.MethodGet, "/api/admin/sessions?filter=today", admin, nil)
	expect(t, w, http.StatusOK)
	var out struct {
		Sessions []sessionView `json:"sessions"`
	}
	decode(t, w, &out)
	if len(out.Sessions) != 2 {
		t.Fatalf("expected 2 sessions today, got %d", len(out.Sessions))
	}
}

func TestCreateRegularSessions(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	w := s.do(http.MethodPost, "/api/admin/sessions/create-regular", admin, gin.H{"dates": []string{"2026-02-02", "2026-02-04"}})
	expect(t, w, http.StatusOK)
	w = s.do(http.MethodPost, "/api/admin/sessions/create-regular", admin, gin.H{"dates": []string{"2026-02-04", "2026-02-06"}})
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Created 1 regular") {
		t.Fatalf("unexpected response %s", w.Body.String())
	}
	expect(t, s.do(http.MethodPost, "/api/admin/sessions/create-regular", admin, gin.H{"dates": []string{"02/06/2026"}}), http.StatusBadRequest)

	w = s.do(http.MethodGet, "/api/admin/sessions?filter=from&date=2026-02-04", admin, nil)
	expect(t, w, http.StatusOK)
	var out struct {
		Sessions []sessionView `json:"sessions"`
	}
	decode(t, w, &out)
	if len(out.Sessions) != 2 || out.Sessions[0].Date != "2026-02-04" {
		t.Fatalf("unexpected sessions %+v", out.Sessions)
	}
}

func TestAuthBoundaries(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	s.importRoster(admin)
	student := s.studentToken("100000001", "Doe, Jane", "pw")

	expect(t, s.do(http.MethodGet, "/api/admin/dashboard", "", nil), http.StatusUnauthorized)
	expect(t, s.do(http.MethodGet, "/api/admin/dashboard", student, nil), http.StatusUnauthorized)
	expect(t, s.do(http.MethodGet, "/api/student/sessions/today", admin, nil), http.StatusUnauthorized)
	expect(t, s.do(http.MethodGet, "/api/admin/dashboard", admin, nil), http.StatusOK)
	expect(t, s.do(http.MethodPost, "/api/admin/login", "", gin.H{"username": "prof", "password": "nope"}), http.StatusUnauthorized)
	expect(t, s.do(http.MethodPost, "/api/student/login", "", gin.H{"uin": "100000001", "password": "nope"}), http.StatusUnauthorized)
}

func TestRegistrationErrors(t *testing.T) {
	s := newTestServer(t)
	s.importRoster(s.adminToken())

	expect(t, s.do(http.MethodPost, "/api/student/register", "", gin.H{"uin": "000", "name": "X", "password": "pw"}), http.StatusNotFound)
	expect(t, s.do(http.MethodPost, "/api/student/register", "", gin.H{"uin": "936002232", "name": "Shuning Gu", "password": "pw"}), http.StatusBadRequest)
	expect(t, s.do(http.MethodPost, "/api/student/reset-password", "", gin.H{"uin": "936002232", "name": "Gu, Shuning", "new_password": "pw"}), http.StatusBadRequest)
	expect(t, s.do(http.MethodPost, "/api/student/register", "", gin.H{"uin": "936002232", "name": "Gu, Shuning", "password": "pw"}), http.StatusCreated)
	expect(t, s.do(http.MethodPost, "/api/student/register", "", gin.H{"uin": "936002232", "name": "Gu, Shuning", "password": "pw"}), http.StatusBadRequest)
	expect(t, s.do(http.MethodPost, "/api/student/reset-password", "", gin.H{"uin": "936002232", "name": "GU, SHUNING", "new_password": "pw2"}), http.StatusOK)
	expect(t, s.do(http.MethodPost, "/api/student/login", "", gin.H{"uin": "936002232", "password": "pw2"}), http.StatusOK)
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/admin/settings", "", nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"disable_time_restrictions":false`) {
		t.Fatalf("unexpected settings %s", w.Body.String())
	}
	expect(t, s.do(http.MethodPut, "/api/admin/settings", "", gin.H{"disable_time_restrictions": true}), http.StatusUnauthorized)

	admin := s.adminToken()
	expect(t, s.do(http.MethodPut, "/api/admin/settings", admin, gin.H{}), http.StatusBadRequest)
	expect(t, s.do(http.MethodPut, "/api/admin/settings", admin, gin.H{"disable_time_restrictions": true}), http.StatusOK)
	w = s.do(http.MethodGet, "/api/admin/settings", "", nil)
	if !strings.Contains(w.Body.String(), `"disable_time_restrictions":true`) {
		t.Fatalf("override not visible: %s", w.Body.String())
	}
}

func TestTokenAdministration(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	w := s.do(http.MethodPost, "/api/admin/sessions/create-test", admin, gin.H{"count": 1})
	expect(t, w, http.StatusOK)
	var created struct {
		Sessions []sessionView `json:"sessions"`
	}
	decode(t, w, &created)
	sid := itoa(created.Sessions[0].ID)

	w = s.do(http.MethodPost, "/api/admin/tokens/generate", admin, gin.H{"session_id": created.Sessions[0].ID})
	expect(t, w, http.StatusCreated)
	var tok struct {
		ID         int64  `json:"id"`
		ExpiryInfo string `json:"expiry_info"`
	}
	decode(t, w, &tok)
	if tok.ExpiryInfo != "Valid for 24 hours" {
		t.Fatalf("expiry info %q", tok.ExpiryInfo)
	}
	expect(t, s.do(http.MethodPost, "/api/admin/tokens/generate", admin, gin.H{"session_id": 999}), http.StatusNotFound)

	w = s.do(http.MethodGet, "/api/admin/tokens/active/"+sid, admin, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"is_active":true`) {
		t.Fatalf("active listing %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/admin/tokens/"+itoa(tok.ID)+"/qr", admin, nil)
	expect(t, w, http.StatusOK)
	if w.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected png, got %q", w.Header().Get("Content-Type"))
	}

	expect(t, s.do(http.MethodPost, "/api/admin/tokens/"+itoa(tok.ID)+"/revoke", admin, nil), http.StatusOK)
	w = s.do(http.MethodGet, "/api/admin/tokens/active/"+sid, admin, nil)
	if strings.Contains(w.Body.String(), `"is_active":true`) {
		t.Fatalf("revoked token still active: %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/admin/tokens/history", admin, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"total":1`) || !strings.Contains(w.Body.String(), `"is_expired":false`) {
		t.Fatalf("history %s", w.Body.String())
	}
	expect(t, s.do(http.MethodGet, "/api/admin/tokens/history/"+sid, admin, nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, "/api/admin/tokens/history/999", admin, nil), http.StatusNotFound)
	expect(t, s.do(http.MethodGet, "/api/admin/tokens/history/abc", admin, nil), http.StatusBadRequest)

	expect(t, s.do(http.MethodDelete, "/api/admin/sessions/"+sid, admin, nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, "/api/admin/tokens/"+itoa(tok.ID)+"/qr", admin, nil), http.StatusNotFound)
}

func TestExports(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	s.importRoster(admin)

	w := s.do(http.MethodGet, "/api/admin/export.csv", admin, nil)
	expect(t, w, http.StatusOK)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "UIN,Name,Total Sessions (All)") {
		t.Fatalf("unexpected csv %q", w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/admin/exports", admin, nil)
	expect(t, w, http.StatusAccepted)
	var job struct {
		ID string `json:"id"`
	}
	decode(t, w, &job)
	// nothing consumes the queue here, so the file never appears
	expect(t, s.do(http.MethodGet, "/api/admin/exports/"+job.ID, admin, nil), http.StatusNotFound)
	expect(t, s.do(http.MethodGet, "/api/admin/exports/not-a-job", admin, nil), http.StatusNotFound)
}

type failingReport struct{}

func (failingReport) Report(context.Context) ([]grading.Row, error) {
	return nil, errors.New("report query failed")
}

func TestFailedExportStopsPolling(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exports := report.NewExporter(failingReport{}, queue.NewInMemory(4), t.TempDir())
	go exports.Run(ctx)
	h := New(Deps{
		Exports: exports,
		Issuer:  auth.NewIssuer("test-key", "attendance-test", time.Hour),
		Admins:  auth.Admins{"prof": "pw"},
	})
	r := gin.New()
	h.Register(r, nil)
	s := &testServer{t: t, r: r}
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/api/admin/exports", admin, nil)
	expect(t, w, http.StatusAccepted)
	var job struct {
		ID string `json:"id"`
	}
	decode(t, w, &job)

	for {
		w = s.do(http.MethodGet, "/api/admin/exports/"+job.ID, admin, nil)
		if w.Code == http.StatusInternalServerError {
			break
		}
		expect(t, w, http.StatusNotFound)
		select {
		case <-ctx.Done():
			t.Fatal("failed export never reported")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !strings.Contains(w.Body.String(), `"status":"failed"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load: %w", model.ErrSessionNotFound), http.StatusNotFound},
		{model.ErrNotFound, http.StatusNotFound},
		{model.ErrOutsideWindow, http.StatusForbidden},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusOf(tc.err); got != tc.want {
			t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
	if _, msg := statusOf(model.ErrSessionNotFound); msg != "Session not found" {
		t.Errorf("session errors should not fall through to the generic not found message: %q", msg)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
