package main

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generated/Chill-Man/internal/config"
)

func TestParseArgs(t *testing.T) {
	p, err := parseArgs([]string{"7", "--offer", "2", "--caller=anna", "--desc"}, []string{"offer", "caller"}, "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, p.positional)
	assert.Equal(t, "2", p.get("offer"))
	assert.Equal(t, "anna", p.get("caller"))
	assert.True(t, p.has("desc"))
	assert.False(t, p.has("missing"))

	_, err = parseArgs([]string{"--bogus", "x"}, []string{"offer"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"--offer"}, []string{"offer"})
	assert.Error(t, err)
}

func TestParseDateArg(t *testing.T) {
	d, err := parseDateArg("15.03.1985")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC), *d)

	d, err = parseDateArg("1985-03-15")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Day())

	d, err = parseDateArg("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDateArg("March 15")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Иван...", truncate("Иванович-Петров", 7))
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "store").WithGroup("scope").Info("committed", "op", "clients.add")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF committed")
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "scope.op=clients.add")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.Debug("visible", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"visible"`)
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
}
