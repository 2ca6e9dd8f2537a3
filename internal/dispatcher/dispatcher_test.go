package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("toggle", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "toggle"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_SetsTimestamp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("tick", func(e Event) (any, error) {
		got = e
		return nil, nil
	})

	if _, err := d.Dispatch(Event{Command: "tick"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "fly"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_DispatchLine(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var payload string
	d.Register("place", func(e Event) (any, error) {
		payload = string(e.Payload)
		return "placed", nil
	})

	line := `{"command":"place","pose":{"latitude":1,"longitude":2}}`
	result, err := d.DispatchLine([]byte(line))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "placed" {
		t.Errorf("expected 'placed', got %v", result)
	}
	if payload != line {
		t.Errorf("expected full line as payload, got %s", payload)
	}
}

func TestDispatcher_DispatchLineInvalidJSON(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.DispatchLine([]byte(`{"command":`))

	if err == nil || !strings.Contains(err.Error(), "decoding command") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("ack_help", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "ack_help"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("place", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(Event{Command: "place"})
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_UnloggedHandlerIsSilent(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("list", func(e Event) (any, error) { return nil, nil })
	d.Dispatch(Event{Command: "list"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) != 0 {
		t.Errorf("expected no log messages, got %v", logger.messages)
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("markers", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("markers") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("missing") {
		t.Error("expected handler to not exist")
	}
}
