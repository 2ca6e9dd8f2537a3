// Package sqlitestorage implements storage.Backend on SQLite. It wraps the
// GORM backend; the SQLite-specific parts are opening the database file (or
// an in-memory one) and, in memory mode, periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/logging"
	gormstorage "github.com/hellogeo/geoanchor/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	// Path is the database file. Empty means an in-memory database.
	Path          string
	FlushInterval time.Duration
	DumpInterval  time.Duration
	DumpPath      string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New opens the SQLite database and creates the backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		LogManager:    logManager,
		FlushInterval: cfg.FlushInterval,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine
// when running in memory with a dump path.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.dumps() {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, applies queued writes, writes a final
// dump in memory mode and closes the database.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	err := b.Backend.Close()
	if b.dumps() {
		if dumpErr := b.Dump(); dumpErr != nil && err == nil {
			err = dumpErr
		}
	}

	if sqlDB, dbErr := b.db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	if err := b.Backend.Flush(); err != nil {
		b.writeLog("Flush before dump failed: "+err.Error(), "WARN")
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

func (b *Backend) dumps() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.writeLog(fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.writeLog(fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}

func (b *Backend) writeLog(msg, level string) {
	if b.log == nil {
		return
	}
	b.log.WriteLog("sqlite:dumpLoop", msg, level)
}
