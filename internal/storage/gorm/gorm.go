// Package gormstorage implements storage.Backend on top of GORM. Writes are queued
// and applied in order by a background writer so callers never wait on the database.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/model"
	"github.com/hellogeo/geoanchor/internal/model/convert"
	"github.com/hellogeo/geoanchor/internal/queue"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/hellogeo/geoanchor/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type opKind int

const (
	opInsert opKind = iota
	opDelete
)

type writeOp struct {
	kind   opKind
	anchor model.Anchor
}

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	// FlushInterval is how often queued writes are applied. Zero applies every
	// write before InsertAnchor/DeleteAnchor return.
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based writes.
type Backend struct {
	deps     Dependencies
	writes   *queue.Queue[writeOp]
	flushMu  sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}

	lastWriteMu       sync.RWMutex
	lastWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps:   deps,
		writes: queue.New[writeOp](),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if b.deps.FlushInterval > 0 {
		b.stopChan = make(chan struct{})
		b.doneChan = make(chan struct{})
		go b.writeLoop()
	}
	return nil
}

// Close stops the writer and applies anything still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.doneChan
		b.stopChan = nil
	}
	return b.Flush()
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// InsertAnchor queues an insert. Existing IDs are ignored on write.
func (b *Backend) InsertAnchor(r *core.AnchorRecord) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("insert anchor: missing record ID")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	b.writes.Push(writeOp{kind: opInsert, anchor: convert.AnchorToGorm(*r)})
	return b.flushIfSync()
}

// DeleteAnchor queues a delete by ID.
func (b *Backend) DeleteAnchor(r *core.AnchorRecord) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("delete anchor: missing record ID")
	}
	b.writes.Push(writeOp{kind: opDelete, anchor: model.Anchor{ID: r.ID}})
	return b.flushIfSync()
}

func (b *Backend) flushIfSync() error {
	if b.deps.FlushInterval > 0 {
		return nil
	}
	return b.Flush()
}

// ListAnchors applies pending writes and returns all records, oldest first.
func (b *Backend) ListAnchors() ([]core.AnchorRecord, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.Anchor
	err := b.deps.DB.Model(&model.Anchor{}).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing anchors: %w", err)
	}

	out := make([]core.AnchorRecord, len(rows))
	for i, row := range rows {
		out[i] = convert.AnchorToCore(row)
	}
	return out, nil
}

// GetAnchor applies pending writes and returns the record with id.
func (b *Backend) GetAnchor(id string) (core.AnchorRecord, error) {
	if err := b.Flush(); err != nil {
		return core.AnchorRecord{}, err
	}

	var row model.Anchor
	err := b.deps.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.AnchorRecord{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return core.AnchorRecord{}, fmt.Errorf("getting anchor %s: %w", id, err)
	}
	return convert.AnchorToCore(row), nil
}

// Flush applies every queued write in order. Failed writes are logged and dropped.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	ops := b.writes.Drain()
	if len(ops) == 0 {
		return nil
	}

	start := time.Now()
	var errs []error
	for _, op := range ops {
		if err := b.apply(op); err != nil {
			b.log("ERROR", fmt.Sprintf("Error writing anchor %s: %v", op.anchor.ID, err))
			errs = append(errs, err)
		}
	}

	b.lastWriteMu.Lock()
	b.lastWriteDuration = time.Since(start)
	b.lastWriteMu.Unlock()

	b.log("DEBUG", fmt.Sprintf("Applied %d anchor writes in %s", len(ops), time.Since(start)))
	return errors.Join(errs...)
}

func (b *Backend) apply(op writeOp) error {
	switch op.kind {
	case opInsert:
		return b.deps.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&op.anchor).Error
	case opDelete:
		return b.deps.DB.Where("id = ?", op.anchor.ID).Delete(&model.Anchor{}).Error
	default:
		return fmt.Errorf("unknown write op %d", op.kind)
	}
}

// Pending returns the number of queued writes.
func (b *Backend) Pending() int {
	return b.writes.Len()
}

// GetLastDBWriteDuration returns the duration of the last flush.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.lastWriteMu.RLock()
	defer b.lastWriteMu.RUnlock()
	return b.lastWriteDuration
}

func (b *Backend) writeLoop() {
	defer close(b.doneChan)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}

func (b *Backend) log(level, msg string) {
	if b.deps.LogManager == nil {
		return
	}
	b.deps.LogManager.WriteLog("gormstorage", msg, level)
}
