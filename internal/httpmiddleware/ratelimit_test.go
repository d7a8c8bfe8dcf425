package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(3, 60).WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("a") {
		t.Fatal("fourth request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("one token should refill after a second at 60/min")
	}
}

func TestAllowDisabled(t *testing.T) {
	l := NewSimpleTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Fatal("zero rate should disable limiting")
		}
	}
}

func TestMiddlewareKeyFunc(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.GET("/", l.Middleware(func(c *gin.Context) string { return c.Query("who") }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(url string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w.Code
	}
	if code := do("/?who=a"); code != http.StatusOK {
		t.Fatalf("first: %d", code)
	}
	if code := do("/?who=a"); code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", code)
	}
	if code := do("/?who=b"); code != http.StatusOK {
		t.Fatalf("other key: %d", code)
	}
	for i := 0; i < 3; i++ {
		if code := do("/"); code != http.StatusOK {
			t.Fatalf("empty key should skip the limit: %d", code)
		}
	}
}
