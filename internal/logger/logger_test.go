package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesCategoryAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.LogBooking("CREATED", "BABCDEFGH1", "pending booking stored")
	l.LogInventory("cat-1", 3, "decrement skipped")

	out := buf.String()
	assert.Contains(t, out, "BOOKING")
	assert.Contains(t, out, "[CREATED] BABCDEFGH1 - pending booking stored")
	assert.Contains(t, out, "INVENTORY")
	assert.Contains(t, out, "cat-1 (qty 3) - decrement skipped")
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	r := chi.NewRouter()
	r.Use(Middleware(l))
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "GET /teapot - 418")
}
