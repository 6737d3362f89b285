package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", JSONOutput: true, Output: &buf})

	l := WithComponent("drift")
	l.Info().Msg("checked")

	entry := decode(t, &buf)
	assert.Equal(t, "drift", entry["component"])
	assert.Equal(t, "checked", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", JSONOutput: true, Output: &buf})
	defer Init(Config{Level: "info", JSONOutput: true, Output: &bytes.Buffer{}})

	Logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	Logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestScopedLoggers(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", JSONOutput: true, Output: &buf})

	run := ForRun("reconciler", "run-42")
	day := ForDay(run, "stat_clicks", types.MustParseDay("2024-01-08"))
	day.Warn().Msg("Day left unchecked")

	entry := decode(t, &buf)
	assert.Equal(t, "reconciler", entry["component"])
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "stat_clicks", entry["view"])
	assert.Equal(t, "2024-01-08", entry["day"])

	buf.Reset()
	view := ForView(WithComponent("backfill"), "stat_corp")
	view.Info().Msg("Backfill completed")

	entry = decode(t, &buf)
	assert.Equal(t, "backfill", entry["component"])
	assert.Equal(t, "stat_corp", entry["view"])
	assert.NotContains(t, entry, "run_id")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"ERROR", zerolog.ErrorLevel},
		{" warn ", zerolog.WarnLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}
