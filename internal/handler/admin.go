package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"attendancewizard/internal/auth"
	"attendancewizard/internal/model"
	"attendancewizard/internal/report"
	"attendancewizard/internal/roster"
)

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !h.Admins.Verify(req.Username, req.Password) {
		unauthorized(c, "Invalid admin credentials")
		return
	}
	access, exp, err := h.Issuer.Issue(req.Username, auth.KindAdmin)
	if err != nil {
		respondError(c, fmt.Errorf("issue access token: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"token_type":   "bearer",
		"expires_at":   exp,
		"user_type":    auth.KindAdmin,
		"user_info":    gin.H{"username": req.Username},
	})
}

// ---------- Settings ----------

func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type settingsRequest struct {
	DisableTimeRestrictions *bool `json:"disable_time_restrictions" binding:"required"`
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := h.Settings.SetTimeRestrictionsDisabled(c.Request.Context(), *req.DisableTimeRestrictions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully", "settings": s})
}

// ---------- Overview ----------

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.Grades.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_students":            d.TotalStudents,
		"total_registered_students": d.RegisteredStudents,
		"total_sessions":            d.TotalSessions,
		"total_attendances":         d.TotalAttendances,
		"today_sessions":            sessionViews(d.TodaySessions),
		"recent_attendances":        recordViews(d.RecentAttendances),
	})
}

func (h *Handler) StudentGrades(c *gin.Context) {
	rows, err := h.Grades.Report(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": rows, "total": len(rows)})
}

// ImportRoster expects a multipart form with the gradebook CSV in "file".
func (h *Handler) ImportRoster(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUpload)
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file field required")
		return
	}
	defer file.Close()

	parsed, err := roster.Parse(file)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.Identity.Import(c.Request.Context(), parsed.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"added":   res.Added,
		"skipped": res.Skipped + parsed.Ignored,
	})
}

// ---------- Sessions ----------

type createTestRequest struct {
	Count int    `json:"count" binding:"omitempty,min=1,max=20"`
	Date  string `json:"date"`
}

func (h *Handler) CreateTestSessions(c *gin.Context) {
	var req createTestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	var day time.Time
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}
	created, err := h.Sessions.CreateTestSessions(c.Request.Context(), req.Count, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Created %d test sessions", len(created)),
		"sessions": sessionViews(created),
	})
}

type createRegularRequest struct {
	Dates []string `json:"dates"`
}

func (h *Handler) CreateRegularSessions(c *gin.Context) {
	var req createRegularRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	days := make([]time.Time, 0, len(req.Dates))
	for _, s := range req.Dates {
		d, err := model.ParseDate(strings.TrimSpace(s))
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
			return
		}
		days = append(days, d)
	}
	created, err := h.Sessions.CreateRegularSessions(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Created %d regular sessions", len(created)),
		"sessions": sessionViews(created),
	})
}

// ListSessions accepts ?filter=today or ?filter=from&date=YYYY-MM-DD.
func (h *Handler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		sessions []model.Session
		err      error
	)
	switch c.Query("filter") {
	case "", "all":
		sessions, err = h.Sessions.List(ctx)
	case "today":
		sessions, err = h.Sessions.ListToday(ctx)
	case "from":
		day := h.Sessions.Today()
		if v := c.Query("date"); v != "" {
			if day, err = model.ParseDate(v); err != nil {
				badRequest(c, "date must be YYYY-MM-DD")
				return
			}
		}
		sessions, err = h.Sessions.ListFrom(ctx, day)
	default:
		badRequest(c, "filter must be one of all, today, from")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessionViews(sessions)})
}

func (h *Handler) TodaySessions(c *gin.Context) {
	sessions, err := h.Sessions.ListToday(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessionViews(sessions)})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Sessions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted", "session_id": id})
}

// ---------- Tokens ----------

type generateRequest struct {
	SessionID int64 `json:"session_id" binding:"required"`
}

func (h *Handler) GenerateToken(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	tok, err := h.Tokens.Generate(ctx, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	sess, err := h.Sessions.Get(ctx, tok.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":              tok.ID,
		"session_id":      tok.SessionID,
		"token":           tok.Value,
		"expires_at":      tok.ExpiresAt,
		"is_test_session": sess.IsTest(),
		"expiry_info":     "Valid for " + humanDuration(h.Tokens.TTL(sess.Kind)),
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

func (h *Handler) ActiveTokens(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	tokens, err := h.Tokens.ListActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "tokens": tokens})
}

func (h *Handler) TokenHistory(c *gin.Context) {
	entries, err := h.Tokens.History(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": entries, "total": len(entries)})
}

func (h *Handler) SessionTokenHistory(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sess, err := h.Sessions.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.Tokens.History(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":         newSessionView(sess),
		"session_id":      id,
		"session_date":    sess.Date.Format(model.DateLayout),
		"is_test_session": sess.IsTest(),
		"tokens":          entries,
		"total":           len(entries),
	})
}

func (h *Handler) RevokeToken(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Tokens.Revoke(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token revoked", "id": id})
}

// TokenQR renders the attendance link for a token as a PNG.
func (h *Handler) TokenQR(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tok, err := h.Tokens.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	png, err := qrcode.Encode(h.attendanceURL(tok), qrcode.Medium, 300)
	if err != nil {
		respondError(c, fmt.Errorf("encode qr: %w", err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) attendanceURL(tok model.Token) string {
	q := url.Values{}
	q.Set("session", fmt.Sprint(tok.SessionID))
	q.Set("token", tok.Value)
	return strings.TrimRight(h.PublicURL, "/") + "/attendance?" + q.Encode()
}

// ---------- Attendance & export ----------

func (h *Handler) SessionAttendance(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	records, err := h.Ledger.BySession(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	sess, err := h.Sessions.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":     newSessionView(sess),
		"attendances": recordViews(records),
		"total":       len(records),
	})
}

func (h *Handler) ExportCSV(c *gin.Context) {
	rows, err := h.Grades.Report(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	name := "attendance_report_" + time.Now().UTC().Format("20060102_150405") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, rows); err != nil {
		c.Error(err)
	}
}

func (h *Handler) StartExport(c *gin.Context) {
	id, err := h.Exports.Enqueue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":       id,
		"status":   "queued",
		"download": "/api/admin/exports/" + id,
	})
}

func (h *Handler) DownloadExport(c *gin.Context) {
	id := c.Param("id")
	path, err := h.Exports.Path(id)
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not ready or unknown", "id": id})
		return
	}
	if errors.Is(err, report.ErrFailed) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed, start a new one", "id": id, "status": "failed"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, report.FileName(id))
}
