package colors

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.lines = append(r.lines, "debug:"+msg) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.lines = append(r.lines, "info:"+msg) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.lines = append(r.lines, "warn:"+msg) }
func (r *recordingLogger) Error(msg string, args ...any) { r.lines = append(r.lines, "error:"+msg) }

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)
	t.Cleanup(restore)
	return &out, &errOut
}

func TestError(t *testing.T) {
	_, errOut := capture(t)

	Error("something", "went wrong")

	assert.Contains(t, errOut.String(), "Error:")
	assert.Contains(t, errOut.String(), "something went wrong")
	assert.Contains(t, errOut.String(), Red)
}

func TestSuccess(t *testing.T) {
	out, _ := capture(t)

	Success("operation completed")

	assert.Contains(t, out.String(), checkmark)
	assert.Contains(t, out.String(), "operation completed")
	assert.Contains(t, out.String(), Green)
}

func TestWarningAndInfoStreams(t *testing.T) {
	out, errOut := capture(t)

	Warning("careful")
	Info("hello")

	assert.Contains(t, errOut.String(), "Warning:")
	assert.NotContains(t, out.String(), "careful")
	assert.Contains(t, out.String(), "hello")
}

func TestDebugRespectsFlag(t *testing.T) {
	_, errOut := capture(t)

	SetDebug(false)
	Debug("hidden")
	require.Empty(t, errOut.String())

	SetDebug(true)
	t.Cleanup(func() { SetDebug(false) })
	Debug("visible")
	assert.Contains(t, errOut.String(), "visible")
}

func TestLoggerMirror(t *testing.T) {
	capture(t)
	rec := &recordingLogger{}
	SetLogger(rec)
	t.Cleanup(func() { SetLogger(nil) })

	Info("a")
	Warning("b")
	Error("c")
	Success("d")

	assert.Equal(t, []string{"info:a", "warn:b", "error:c", "info:d"}, rec.lines)
}
