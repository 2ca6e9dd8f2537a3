package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/session"
	"github.com/hellogeo/geoanchor/internal/storage"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// Status is one snapshot of the running service.
type Status struct {
	Time    time.Time     `json:"time"`
	Session session.Stats `json:"session"`
	// PendingWrites and LastWriteDurationMs are zero for backends without a write queue.
	PendingWrites       int     `json:"pendingWrites"`
	LastWriteDurationMs float32 `json:"lastWriteDurationMs"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session    *session.Session
	Storage    storage.Backend
	LogManager *logging.SlogManager
	// StatusPath is rewritten with the latest status on every interval.
	StatusPath string
	Interval   time.Duration
	Now        func() time.Time
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status
func (s *Service) GetStatus() Status {
	status := Status{
		Time:    s.deps.Now(),
		Session: s.deps.Session.Stats(),
	}
	if ws, ok := s.deps.Storage.(storage.WriteStats); ok {
		status.PendingWrites = ws.Pending()
		status.LastWriteDurationMs = float32(ws.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return status
}

// WriteStatus writes the current status to w as indented JSON.
func (s *Service) WriteStatus(w io.Writer) error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	statusFile, err := os.Create(s.deps.StatusPath)
	if err != nil {
		return fmt.Errorf("error creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.loop(statusFile)
	return nil
}

func (s *Service) loop(statusFile *os.File) {
	defer close(s.doneChan)
	defer statusFile.Close()

	logger := s.deps.LogManager.Logger()
	logger.Debug("Starting status monitor goroutine", "path", s.deps.StatusPath)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.rewrite(statusFile)
			return
		case <-ticker.C:
			s.rewrite(statusFile)
		}
	}
}

func (s *Service) rewrite(statusFile *os.File) {
	if err := statusFile.Truncate(0); err != nil {
		s.deps.LogManager.WriteLog("statusMonitor", fmt.Sprintf("Error truncating status file: %v", err), "ERROR")
		return
	}
	if _, err := statusFile.Seek(0, 0); err != nil {
		s.deps.LogManager.WriteLog("statusMonitor", fmt.Sprintf("Error seeking status file: %v", err), "ERROR")
		return
	}
	if err := s.WriteStatus(statusFile); err != nil {
		s.deps.LogManager.WriteLog("statusMonitor", fmt.Sprintf("Error writing status: %v", err), "ERROR")
	}
}

// Stop stops the status monitor and waits for the final status write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done
}
