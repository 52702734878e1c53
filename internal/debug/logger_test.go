package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	prev, was := Logger(), Enabled()
	t.Cleanup(func() { set(prev, was) })

	Init(false)
	assert.False(t, Enabled())
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))

	Init(true)
	assert.True(t, Enabled())
}

func TestSetLogger(t *testing.T) {
	prev, was := Logger(), Enabled()
	t.Cleanup(func() { set(prev, was) })

	var buf bytes.Buffer
	SetLogger(New(&buf, "text"))
	require.True(t, Enabled())
	Logger().Debug("statement", "sql", "SELECT 1")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `sql="SELECT 1"`)

	SetLogger(nil)
	assert.False(t, Enabled())
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "JSON").Info("query", "rows", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "query", line["msg"])
	assert.Equal(t, float64(3), line["rows"])
}
