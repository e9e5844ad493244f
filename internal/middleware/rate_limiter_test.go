package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/upload", handlers...)
	return r
}

func post(r http.Handler, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerClient(t *testing.T) {
	l := NewUploadRateLimiter(2, 2)
	r := newRouter(l.RateLimit())

	for i := 0; i < 2; i++ {
		if w := post(r, "10.0.0.1", ""); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := post(r, "10.0.0.1", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after burst, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Expected Retry-After 30, got %q", got)
	}
	if !strings.Contains(w.Body.String(), "api.rate_limited") {
		t.Errorf("Expected error key in body, got %s", w.Body.String())
	}

	if w := post(r, "10.0.0.2", ""); w.Code != http.StatusOK {
		t.Errorf("Expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	l := NewUploadRateLimiter(0, 0)
	if l.Enabled() {
		t.Fatal("Expected limiter to be disabled")
	}
	r := newRouter(l.RateLimit())
	for i := 0; i < 50; i++ {
		if w := post(r, "10.0.0.1", ""); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestCleanup(t *testing.T) {
	l := NewUploadRateLimiter(5, 5)
	l.Allow("a")
	l.Allow("b")

	if n := l.Cleanup(time.Hour); n != 0 {
		t.Errorf("Expected no idle clients, removed %d", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := l.Cleanup(time.Millisecond); n != 2 {
		t.Errorf("Expected 2 idle clients removed, got %d", n)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	r := newRouter(RequestSizeLimit(8))

	if w := post(r, "10.0.0.1", "small"); w.Code != http.StatusOK {
		t.Errorf("Expected small body to pass, got %d", w.Code)
	}

	w := post(r, "10.0.0.1", "much too large")
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "api.too_large") {
		t.Errorf("Expected error key in body, got %s", w.Body.String())
	}
}

func TestRequestSizeLimitUnknownLength(t *testing.T) {
	r := newRouter(RequestSizeLimit(8))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("much too large"))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected read cap to reject body, got %d", w.Code)
	}
}
