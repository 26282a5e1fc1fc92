package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })
	return &buf
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{name: "success logs info", status: http.StatusOK, expectedLevel: "info"},
		{name: "client error logs warn", status: http.StatusBadRequest, expectedLevel: "warn"},
		{name: "server error logs error", status: http.StatusServiceUnavailable, expectedLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			router := gin.New()
			router.Use(RequestID(), RequestLogger())
			router.POST("/api/v1/distance", func(c *gin.Context) {
				c.Set(ClientIDKey, "abc123")
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/distance", nil)
			req.Header.Set(RequestIDHeader, "req-1")
			router.ServeHTTP(httptest.NewRecorder(), req)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.expectedLevel, line["level"])
			assert.Equal(t, "req-1", line["request_id"])
			assert.Equal(t, "/api/v1/distance", line["path"])
			assert.Equal(t, float64(tt.status), line["status_code"])
			assert.Equal(t, "abc123", line["client"])
			assert.Equal(t, "HTTP request", line["message"])
		})
	}
}
