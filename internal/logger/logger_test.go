package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	l.Info("quiet %d", 1)
	l.Warn("loud %d", 2)

	assert.NotContains(t, buf.String(), "quiet 1")
	assert.Contains(t, buf.String(), "loud 2")

	l.SetLevel(DEBUG)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: INFO, Output: &buf})
	require.NoError(t, err)

	code := -1
	l.exit = func(c int) { code = c }
	l.Fatal("cannot continue")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "FATAL: cannot continue")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flood.log")
	l, err := New(Config{Level: INFO, LogFilePath: path, Output: &bytes.Buffer{}})
	require.NoError(t, err)

	l.Error("disk %s", "full")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk full")
}

func TestParseLevelAndMode(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
	assert.Equal(t, FULL, ParseMode("FULL"))
	assert.Equal(t, NORMAL, ParseMode(""))
	assert.Equal(t, "ERROR", ERROR.String())
}

func TestDiscardDropsEverything(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
	assert.Nil(t, l.logFile)
}
