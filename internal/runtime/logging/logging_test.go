package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillServiceLoggerDelegates(t *testing.T) {
	capture := watermill.NewCaptureLogger()
	logger := NewWatermillServiceLogger(capture)

	boom := errors.New("boom")
	logger.Debug("dbg", LogFields{"component": "emitter"})
	logger.Info("info", nil)
	logger.Error("failed", boom, LogFields{"file": "eventbind_gen.go"})

	assert.True(t, capture.Has(watermill.CapturedMessage{
		Level:  watermill.DebugLogLevel,
		Fields: watermill.LogFields{"component": "emitter"},
		Msg:    "dbg",
	}))
	assert.True(t, capture.HasError(boom))
	assert.Len(t, capture.Captured()[watermill.InfoLogLevel], 1)
}

func TestWithoutFieldsReturnsSameLogger(t *testing.T) {
	logger := NewWatermillServiceLogger(watermill.NopLogger{})
	assert.Same(t, logger, logger.With(nil))
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewWatermillServiceLogger(nil) })
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestNewSlogServiceLoggerWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	logger.Info("generated", LogFields{"types": 2})

	assert.Contains(t, buf.String(), "generated")
	assert.Contains(t, buf.String(), "types=2")
}

func TestWatermillAdapterUnwrapsWatermillLoggers(t *testing.T) {
	capture := watermill.NewCaptureLogger()
	adapter := NewWatermillAdapter(NewWatermillServiceLogger(capture))
	assert.Same(t, capture, adapter)
}

func TestWatermillAdapterDelegatesToServiceLogger(t *testing.T) {
	base := &recordingLogger{}
	adapter := NewWatermillAdapter(base)

	adapter.Debug("dbg", watermill.LogFields{"k": "v"})
	adapter.Info("info", nil)
	adapter.Trace("trace", nil)
	adapter.Error("err", errors.New("boom"), nil)
	adapter.With(watermill.LogFields{"child": "yes"}).Info("child", nil)

	require.Len(t, base.entries, 5)
	assert.Equal(t, "debug", base.entries[0].level)
	assert.Equal(t, "v", base.entries[0].fields["k"])
	assert.Nil(t, base.entries[1].fields)
	assert.Equal(t, "yes", base.entries[4].fields["child"])
}

func TestDiscard(t *testing.T) {
	log := OrDiscard(nil)
	require.NotNil(t, log)
	log.Info("dropped", LogFields{"k": "v"})

	kept := Discard()
	assert.Same(t, kept, OrDiscard(kept))
}

type loggedEntry struct {
	level  string
	msg    string
	fields LogFields
	err    error
}

type recordingLogger struct {
	entries []loggedEntry
	base    LogFields
	parent  *recordingLogger
}

func (r *recordingLogger) root() *recordingLogger {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

func (r *recordingLogger) record(level, msg string, err error, fields LogFields) {
	merged := fields
	if len(r.base) > 0 {
		merged = LogFields{}
		for k, v := range r.base {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	root := r.root()
	root.entries = append(root.entries, loggedEntry{level: level, msg: msg, fields: merged, err: err})
}

func (r *recordingLogger) With(fields LogFields) ServiceLogger {
	return &recordingLogger{base: fields, parent: r}
}

func (r *recordingLogger) Debug(msg string, fields LogFields) { r.record("debug", msg, nil, fields) }
func (r *recordingLogger) Info(msg string, fields LogFields)  { r.record("info", msg, nil, fields) }
func (r *recordingLogger) Trace(msg string, fields LogFields) { r.record("trace", msg, nil, fields) }

func (r *recordingLogger) Error(msg string, err error, fields LogFields) {
	r.record("error", msg, err, fields)
}
