package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, "info"), "gauge")
	l.Debug().Msg("hidden")
	l.Info().Str("gauge", "radalt").Msg("homed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "homed", rec["message"])
	assert.Equal(t, "gauge", rec["component"])
	assert.Equal(t, "radalt", rec["gauge"])
	assert.Contains(t, rec, "time")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug")
	ctx := WithContext(context.Background(), l)
	From(ctx).Debug().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")

	// No logger stored: disabled, not nil.
	assert.NotPanics(t, func() { From(context.Background()).Info().Msg("dropped") })
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	l := Console(&buf, "info", false)
	l.Info().Str("state", "PAUSED").Msg("sim state")
	assert.Contains(t, buf.String(), "sim state")
	assert.Contains(t, buf.String(), "state=PAUSED")
}
