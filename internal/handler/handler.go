// Package handler exposes the attendance services over HTTP.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"attendancewizard/internal/attendance"
	"attendancewizard/internal/auth"
	"attendancewizard/internal/grading"
	"attendancewizard/internal/identity"
	"attendancewizard/internal/report"
	"attendancewizard/internal/session"
	"attendancewizard/internal/settings"
	"attendancewizard/internal/token"
)

// Deps are the services a Handler serves.
type Deps struct {
	Identity  *identity.Service
	Sessions  *session.Service
	Tokens    *token.Service
	Ledger    *attendance.Service
	Grades    *grading.Engine
	Settings  *settings.Service
	Exports   *report.Exporter
	Issuer    *auth.Issuer
	Admins    auth.Admins
	PublicURL string
	MaxUpload int64
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.MaxUpload <= 0 {
		d.MaxUpload = 5 << 20
	}
	return &Handler{Deps: d}
}

// Register mounts every /api route on r. markLimit, when non-nil, runs after
// student authentication on the mark route.
func (h *Handler) Register(r gin.IRouter, markLimit gin.HandlerFunc) {
	api := r.Group("/api")

	student := api.Group("/student")
	{
		student.POST("/register", h.StudentRegister)
		student.POST("/login", h.StudentLogin)
		student.POST("/reset-password", h.StudentResetPassword)

		authed := student.Group("", auth.StudentAuth(h.Issuer))
		authed.GET("/sessions/today", h.StudentSessionsToday)
		authed.GET("/sessions/available", h.StudentSessionsAvailable)
		mark := []gin.HandlerFunc{h.MarkAttendance}
		if markLimit != nil {
			mark = append([]gin.HandlerFunc{markLimit}, mark...)
		}
		authed.POST("/attendance/mark", mark...)
		authed.GET("/attendance/my-records", h.MyRecords)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", h.AdminLogin)
		admin.GET("/settings", h.GetSettings)

		authed := admin.Group("", auth.AdminAuth(h.Issuer))
		authed.PUT("/settings", h.UpdateSettings)
		authed.GET("/dashboard", h.Dashboard)
		authed.GET("/students/grades", h.StudentGrades)
		authed.POST("/students/import", h.ImportRoster)

		authed.POST("/sessions/create-test", h.CreateTestSessions)
		authed.POST("/sessions/create-regular", h.CreateRegularSessions)
		authed.GET("/sessions", h.ListSessions)
		authed.GET("/sessions/today", h.TodaySessions)
		authed.DELETE("/sessions/:id", h.DeleteSession)

		authed.POST("/tokens/generate", h.GenerateToken)
		authed.GET("/tokens/active/:session_id", h.ActiveTokens)
		authed.GET("/tokens/history", h.TokenHistory)
		authed.GET("/tokens/history/:session_id", h.SessionTokenHistory)
		authed.POST("/tokens/:id/revoke", h.RevokeToken)
		authed.GET("/tokens/:id/qr", h.TokenQR)

		authed.GET("/attendance/session/:session_id", h.SessionAttendance)

		authed.GET("/export.csv", h.ExportCSV)
		authed.POST("/exports", h.StartExport)
		authed.GET("/exports/:id", h.DownloadExport)
	}
}

// StudentKey charges a request to the authenticated student, for rate limiting.
func StudentKey(c *gin.Context) string {
	return auth.Subject(c)
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func studentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(auth.Subject(c), 10, 64)
	if err != nil {
		unauthorized(c, "invalid token")
		return 0, false
	}
	return id, true
}
