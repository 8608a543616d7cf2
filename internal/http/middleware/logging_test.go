package middleware

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := do(r, http.MethodGet, "/rid", nil)
	gen := w.Header().Get(requestIDHeader)
	if gen == "" || w.Body.String() != gen {
		t.Fatalf("generated id %q, body %q", gen, w.Body.String())
	}

	w = do(r, http.MethodGet, "/rid", map[string]string{"x-request-id": "abc-123"})
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}

	w = do(r, http.MethodGet, "/rid", map[string]string{requestIDHeader: strings.Repeat("x", 200)})
	if got := w.Header().Get(requestIDHeader); len(got) > 128 {
		t.Fatalf("oversized id should be replaced, got %d bytes", len(got))
	}
}

func TestAccessLog_LevelsAndContextLogger(t *testing.T) {
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/ok", func(c *gin.Context) {
		// Services log through the request context.
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.String(http.StatusOK, "hi")
	})
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusBadRequest)
	})

	do(r, http.MethodGet, "/ok?q=1", map[string]string{requestIDHeader: "rid-1"})
	out := buf.String()
	if !strings.Contains(out, `"message":"from service"`) || !strings.Contains(out, `"request_id":"rid-1"`) {
		t.Fatalf("context logger missing request fields: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) || !strings.Contains(out, `"path":"/ok"`) {
		t.Fatalf("expected info access log: %s", out)
	}

	buf.Reset()
	do(r, http.MethodGet, "/bad", nil)
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected warn for 4xx: %s", buf.String())
	}

	buf.Reset()
	do(r, http.MethodGet, "/err", nil)
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error with gin errors: %s", buf.String())
	}
}

func TestLoggerFrom_Fallback(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if LoggerFrom(c) == nil {
			t.Fatalf("LoggerFrom returned nil")
		}
		c.Status(http.StatusNoContent)
	})
	if w := do(r, http.MethodGet, "/", nil); w.Code != http.StatusNoContent {
		t.Fatalf("status %d", w.Code)
	}
}

func TestRecovery_JSON500(t *testing.T) {
	buf := captureLogger(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/panic", map[string]string{requestIDHeader: "rid-p"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["request_id"] != "rid-p" || body["code"] != "internal_error" || body["error"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("truncate disabled = %q", got)
	}
}
