package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendancewizard/internal/model"
)

// errorStatus maps domain errors onto responses. ErrSessionNotFound wraps
// ErrNotFound, so it must come first.
var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{model.ErrSessionNotFound, http.StatusNotFound, "Session not found"},
	{model.ErrNotFound, http.StatusNotFound, "Not found"},
	{model.ErrNameMismatch, http.StatusBadRequest, "Name does not match our records. Please enter your name exactly as it appears in Canvas."},
	{model.ErrAlreadyRegistered, http.StatusBadRequest, "You have already registered. Please use the login page."},
	{model.ErrNotActivated, http.StatusBadRequest, "Account not yet activated. Please complete registration first."},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid UIN or password"},
	{model.ErrUnauthenticated, http.StatusUnauthorized, "invalid token"},
	{model.ErrWrongDay, http.StatusBadRequest, "You can only mark attendance for today's sessions"},
	{model.ErrOutsideWindow, http.StatusForbidden, "Attendance window closed"},
	{model.ErrInvalidOrExpiredToken, http.StatusForbidden, "Invalid or expired session token"},
	{model.ErrAlreadyMarked, http.StatusBadRequest, "Attendance already marked for this session"},
}

// statusOf returns the response for err; anything unmapped is a 500.
func statusOf(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.msg
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func respondError(c *gin.Context, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
}
