package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelMapping(t *testing.T) {
	cases := map[LogLevel]charmlog.Level{
		DebugLevel:         charmlog.DebugLevel,
		InfoLevel:          charmlog.InfoLevel,
		WarnLevel:          charmlog.WarnLevel,
		ErrorLevel:         charmlog.ErrorLevel,
		LogLevel("chatty"): charmlog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, in.ToCharmlogLevel(), string(in))
	}
}

func TestJSONOutputCarriesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: DebugLevel, Output: &buf, JSON: true})
	l.With("entity", "taxes").Info("record created", "id", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "record created", line["msg"])
	assert.Equal(t, "taxes", line["entity"])
	assert.EqualValues(t, 3, line["id"])
}

func TestLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: WarnLevel, Output: &buf})
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	want := Nop()
	ctx := ContextWithLogger(context.Background(), want)
	assert.Same(t, want, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
