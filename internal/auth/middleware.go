package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubjectKey is the gin context key holding the authenticated subject.
const SubjectKey = "subject"

// StudentAuth enforces bearer tokens issued to students.
func StudentAuth(issuer *Issuer) gin.HandlerFunc {
	return require(issuer, KindStudent)
}

// AdminAuth enforces bearer tokens issued to administrators.
func AdminAuth(issuer *Issuer) gin.HandlerFunc {
	return require(issuer, KindAdmin)
}

func require(issuer *Issuer, kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		subject, err := issuer.Parse(tokenStr, kind)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated subject set by StudentAuth or AdminAuth.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}
