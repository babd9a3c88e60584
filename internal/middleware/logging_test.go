package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger(&buf, "production", level)
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_StampsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "info")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(7))
	ctx = context.WithValue(ctx, TraceIDKey, "trace-9")

	// derived loggers keep the context handler
	logger.With(slog.String("component", "favorites")).InfoContext(ctx, "toggled")
	logger.DebugContext(ctx, "dropped below level")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, float64(7), lines[0]["user_id"])
	assert.Equal(t, "trace-9", lines[0]["trace_id"])
	assert.Equal(t, "favorites", lines[0]["component"])
	assert.Equal(t, "linkshelf", lines[0]["service"])
}

func TestNewLogger_TextOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development", "info").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestStructuredLogger(t *testing.T) {
	buf := captureLogger(t, "info")

	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/bookmarks/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/busy", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusTooManyRequests) })

	for _, path := range []string{"/health/live", "/api/bookmarks/42", "/busy"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	lines := logLines(t, buf)
	require.Len(t, lines, 2, "health checks log at debug")

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "/api/bookmarks/42", lines[0]["path"])
	assert.Equal(t, "/api/bookmarks/:id", lines[0]["route"])
	assert.Equal(t, float64(2), lines[0]["bytes"])

	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, float64(fiber.StatusTooManyRequests), lines[1]["status"])
}

func TestStructuredLogger_ErrorStatus(t *testing.T) {
	buf := captureLogger(t, "info")

	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, float64(fiber.StatusNotFound), lines[0]["status"])
	assert.Equal(t, "Not Found", lines[0]["error"])
}
