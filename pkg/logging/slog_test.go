// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-dkg/pkg/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestSlogAdapter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", FormatJSON, &buf)

	log.Info("session created", SessionID("abc"), Int("threshold", 2), Strings("participants", []string{"Alice", "Bob"}))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "session created", record["msg"])
	assert.Equal(t, "abc", record["session_id"])
	assert.Equal(t, float64(2), record["threshold"])
	assert.Equal(t, []any{"Alice", "Bob"}, record["participants"])
}

func TestSlogAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", FormatText, &buf)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown", Bool("flag", true))
	log.Error("also shown", Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "flag=true")
	assert.Contains(t, out, "error=boom")
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	base := New("debug", FormatText, &buf)

	child := base.With(String("component", "manager")).WithError(errors.New("bad input"))
	child.Debug("removal rejected")

	out := buf.String()
	assert.Contains(t, out, "component=manager")
	assert.Contains(t, out, `error="bad input"`)

	buf.Reset()
	base.Info("plain")
	assert.NotContains(t, buf.String(), "component")
}

func TestSlogAdapter_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", FormatJSON, &buf)

	ctx := correlation.WithCorrelationID(context.Background(), "corr-1")
	ctx = correlation.WithSessionID(ctx, "sess-1")

	log.InfoContext(ctx, "step")
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "corr-1", record["correlation_id"])
	assert.Equal(t, "sess-1", record["session_id"])

	buf.Reset()
	log.WarnContext(context.Background(), "no ids")
	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nothing")
	assert.NotNil(t, log.Slog())
}

func TestNewSlogAdapter_NilConfig(t *testing.T) {
	log := NewSlogAdapter(nil)
	require.NotNil(t, log)
	assert.Empty(t, log.fields)
}
