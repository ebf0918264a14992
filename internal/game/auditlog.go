package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	auditBufferSize    = 1024                   // Pending-record channel capacity
	auditMaxPerSec     = 10000                  // Global rate limit across all rooms
	auditFlushSize     = 64                     // Records per batch write
	auditFlushInterval = 100 * time.Millisecond // How often to flush
)

// auditRecord is one JSONL line in the audit trail.
type auditRecord struct {
	RoomID    string      `json:"roomId"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// AuditLog is a bounded, rate-limited JSONL trail of every room event.
// Recording never blocks the simulation: over-rate and overflow records are
// dropped and counted.
type AuditLog struct {
	limiter *rate.Limiter
	records chan auditRecord

	file   *os.File
	fileMu sync.Mutex

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewAuditLog opens path for append and starts the async writer. An empty
// path returns a nil log, which Record treats as disabled.
func NewAuditLog(path string) (*AuditLog, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	al := &AuditLog{
		limiter:  rate.NewLimiter(auditMaxPerSec, auditMaxPerSec/10),
		records:  make(chan auditRecord, auditBufferSize),
		file:     file,
		stopChan: make(chan struct{}),
	}
	al.running.Store(true)
	al.wg.Add(1)
	go al.writerLoop()
	return al, nil
}

// Record enqueues one event line. Safe on a nil receiver and never blocks.
func (al *AuditLog) Record(roomID string, ev Event) {
	if al == nil || !al.running.Load() {
		return
	}
	if !al.limiter.Allow() {
		atomic.AddUint64(&al.droppedCount, 1)
		return
	}
	rec := auditRecord{
		RoomID:    roomID,
		Type:      ev.Type,
		Data:      ev.Data,
		Timestamp: ev.Timestamp,
	}
	select {
	case al.records <- rec:
		atomic.AddUint64(&al.totalCount, 1)
	default:
		atomic.AddUint64(&al.droppedCount, 1)
	}
}

// Stats returns total recorded and dropped counts.
func (al *AuditLog) Stats() (total, dropped uint64) {
	if al == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&al.totalCount), atomic.LoadUint64(&al.droppedCount)
}

// Stop flushes pending records and closes the file. Safe to call more than
// once and on a nil receiver.
func (al *AuditLog) Stop() {
	if al == nil {
		return
	}
	al.stopOnce.Do(func() {
		al.running.Store(false)
		close(al.stopChan)
		al.wg.Wait()

		al.fileMu.Lock()
		al.file.Close()
		al.fileMu.Unlock()
	})
}

// writerLoop batches records and writes them to disk asynchronously.
func (al *AuditLog) writerLoop() {
	defer al.wg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]auditRecord, 0, auditFlushSize)

	for {
		select {
		case <-al.stopChan:
			batch = al.drain(batch[:0])
			if len(batch) > 0 {
				al.flush(batch)
			}
			return
		case <-ticker.C:
			batch = al.drain(batch[:0])
			if len(batch) > 0 {
				al.flush(batch)
			}
		}
	}
}

// drain pulls everything currently queued, up to the batch cap.
func (al *AuditLog) drain(batch []auditRecord) []auditRecord {
	for len(batch) < auditFlushSize {
		select {
		case rec := <-al.records:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
	return batch
}

func (al *AuditLog) flush(batch []auditRecord) {
	al.fileMu.Lock()
	defer al.fileMu.Unlock()

	enc := json.NewEncoder(al.file)
	for _, rec := range batch {
		if err := enc.Encode(rec); err != nil {
			atomic.AddUint64(&al.droppedCount, 1)
		}
	}
}
