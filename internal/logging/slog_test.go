package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_FileOnly_NoConsole(t *testing.T) {
	var fileBuf, consoleBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", File: &fileBuf, Console: &consoleBuf})
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	assert.Contains(t, fileBuf.String(), "Logging initialized")
	assert.Empty(t, consoleBuf.String(), "nothing should be written to console when file is provided")
}

func TestSetup_NoFile_WritesToConsole(t *testing.T) {
	var consoleBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", Console: &consoleBuf})
	m.Logger().Info("hello console")

	assert.Contains(t, consoleBuf.String(), "hello console")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "debug", File: &buf})

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", File: &buf})

	m.Logger().Debug("hidden")

	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetup_GraylogSinkReceivesJSON(t *testing.T) {
	var fileBuf, gelfBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", File: &fileBuf, Graylog: &gelfBuf})

	m.Logger().Info("anchor placed", "index", 2)

	assert.Contains(t, fileBuf.String(), "anchor placed")
	assert.Contains(t, gelfBuf.String(), `"msg":"anchor placed"`)
	assert.Contains(t, gelfBuf.String(), `"index":2`)
}

func TestSetup_ContextProviderAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	count := 0
	m := NewSlogManager()
	m.Setup(Options{Level: "info", File: &buf, Context: func() []slog.Attr {
		return []slog.Attr{slog.Int("anchors", count)}
	}})

	count = 2
	m.Logger().Info("tick")

	assert.Contains(t, buf.String(), "anchors=2")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", File: &first})
	m.Setup(Options{Level: "info", File: &second})

	m.Logger().Info("after replace")

	assert.NotContains(t, first.String(), "after replace")
	assert.Contains(t, second.String(), "after replace")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestWriteLog_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "debug", File: &buf})

	m.WriteLog("fnDebug", "debug data", "DEBUG")
	m.WriteLog("fnInfo", "info data", "INFO")
	m.WriteLog("fnWarn", "warn data", "WARN")
	m.WriteLog("fnError", "error data", "ERROR")
	m.WriteLog("fnOther", "other data", "TRACE")

	output := buf.String()
	assert.Contains(t, output, "level=DEBUG msg=\"debug data\" function=fnDebug")
	assert.Contains(t, output, "level=INFO msg=\"info data\" function=fnInfo")
	assert.Contains(t, output, "level=WARN msg=\"warn data\" function=fnWarn")
	assert.Contains(t, output, "level=ERROR msg=\"error data\" function=fnError")
	assert.Contains(t, output, "level=INFO msg=\"other data\" function=fnOther")
}

func TestWriteLog_NilLogger(t *testing.T) {
	m := NewSlogManager()
	assert.NotPanics(t, func() { m.WriteLog("fn", "data", "INFO") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(h1, h2))
	logger.Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_FiltersNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(nil, h, nil)
	require.Len(t, multi.handlers, 1)

	slog.New(multi).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewMultiHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandler_Empty(t *testing.T) {
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	multi := NewMultiHandler(h)

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "session")})).Info("with attrs")
	slog.New(multi.WithGroup("grp")).Info("grouped", "key", "val")

	assert.Contains(t, buf.String(), "component=session")
	assert.Contains(t, buf.String(), "grp.key=val")
	assert.Equal(t, multi, multi.WithGroup(""), "empty group name should return same handler")
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	slog.New(NewMultiHandler(&errorHandler{}, spy)).Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")
}

func TestMultiHandler_HandleJoinsSinkErrors(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, nil)
	multi := NewMultiHandler(&errorHandler{}, spy, &errorHandler{})

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "joined", 0))

	require.Error(t, err)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 2)
	assert.Contains(t, buf.String(), "joined")
}

func TestContextHandler_RecordKeyWins(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.Int("anchors", 2), slog.Bool("hydrated", true)}
	})

	slog.New(h).Info("placed", "anchors", 3)

	assert.Contains(t, buf.String(), "anchors=3")
	assert.NotContains(t, buf.String(), "anchors=2")
	assert.Contains(t, buf.String(), "hydrated=true")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), nil)).Info("plain")

	assert.Contains(t, buf.String(), "plain")
}

func TestContextHandler_WithGroupKeepsProvider(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)
	h := NewContextHandler(inner, func() []slog.Attr { return []slog.Attr{slog.Bool("action", true)} })

	slog.New(h.WithAttrs([]slog.Attr{slog.String("op", "tick")})).Info("msg")

	assert.Contains(t, buf.String(), "op=tick")
	assert.Contains(t, buf.String(), "action=true")
	assert.Equal(t, h, h.WithGroup(""))
}
