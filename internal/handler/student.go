package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendancewizard/internal/auth"
	"attendancewizard/internal/model"
)

const unknownUIN = "UIN not found. Please check your UIN or contact your instructor."

type registerRequest struct {
	UIN      string `json:"uin" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) StudentRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.Identity.Register(c.Request.Context(), req.UIN, req.Name, req.Password)
	if err != nil {
		identityError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! You can now login.",
		"uin":     st.UIN,
		"name":    st.Name,
	})
}

type loginRequest struct {
	UIN      string `json:"uin" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) StudentLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.Identity.Authenticate(c.Request.Context(), req.UIN, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			unauthorized(c, "Invalid UIN or password")
			return
		}
		respondError(c, err)
		return
	}
	access, exp, err := h.Issuer.Issue(strconv.FormatInt(st.ID, 10), auth.KindStudent)
	if err != nil {
		respondError(c, fmt.Errorf("issue access token: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"token_type":   "bearer",
		"expires_at":   exp,
		"user_type":    auth.KindStudent,
		"user_info":    gin.H{"id": st.ID, "uin": st.UIN, "name": st.Name},
	})
}

type resetRequest struct {
	UIN         string `json:"uin" binding:"required"`
	Name        string `json:"name" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *Handler) StudentResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.Identity.ResetCredential(c.Request.Context(), req.UIN, req.Name, req.NewPassword)
	if err != nil {
		identityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successful! You can now login with your new password.",
		"uin":     st.UIN,
		"name":    st.Name,
	})
}

func identityError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": unknownUIN})
		return
	}
	respondError(c, err)
}

func (h *Handler) StudentSessionsToday(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	views, err := h.Ledger.Today(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": studentSessionViews(views)})
}

func (h *Handler) StudentSessionsAvailable(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	views, err := h.Ledger.Available(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": studentSessionViews(views)})
}

type markRequest struct {
	SessionID int64  `json:"session_id" binding:"required"`
	Token     string `json:"token" binding:"required,len=6,number"`
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := h.Ledger.Mark(c.Request.Context(), id, req.SessionID, req.Token)
	if errors.Is(err, model.ErrOutsideWindow) {
		w := h.Ledger.Window()
		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("Attendance window closed. You can only mark attendance between %02d:00 and %02d:00", w.Start, w.End),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Attendance marked successfully",
		"attendance": newRecordView(rec),
	})
}

func (h *Handler) MyRecords(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := h.Identity.FindByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.Grades.StatsFor(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	records, err := h.Ledger.Records(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":    gin.H{"uin": st.UIN, "name": st.Name},
		"statistics": stats,
		"records":    recordViews(records),
	})
}
