package stackrt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/stackrt/internal/ratelog"
)

func TestWriterLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	l.Log(LogEntry{Level: LevelInfo, Category: "test", Message: "should be dropped"})
	assert.Empty(t, buf.String())

	l.Log(LogEntry{Level: LevelError, Category: "test", Message: "should appear"})
	assert.Contains(t, buf.String(), "should appear")
	assert.Contains(t, buf.String(), "ERROR")
}

func TestNoOpLogger_DropsEverything(t *testing.T) {
	l := NewNoOpLogger()
	assert.False(t, l.IsEnabled(LevelError))
	l.Log(LogEntry{Level: LevelError, Message: "ignored"})
}

func TestSetLogger_ChangesPackageDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := NewWriterLogger(LevelDebug, &buf)
	SetLogger(custom)
	t.Cleanup(func() { SetLogger(nil) })

	require.Same(t, custom, getGlobalLogger())
}

func TestGetGlobalLogger_DefaultsToNoOp(t *testing.T) {
	SetLogger(nil)
	assert.IsType(t, &NoOpLogger{}, getGlobalLogger())
}

func TestLogStealOutcome_ThrottlesAbortedUnderContention(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)

	original := noisyLogGate
	noisyLogGate = ratelog.New(time.Minute, 3)
	t.Cleanup(func() { noisyLogGate = original })

	for i := 0; i < 20; i++ {
		logStealOutcome(l, 1, "aborted")
	}

	count := strings.Count(buf.String(), "steal attempt")
	assert.Less(t, count, 20)
	assert.Greater(t, count, 0)
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Contains(t, LogLevel(42).String(), "UNKNOWN")
}
