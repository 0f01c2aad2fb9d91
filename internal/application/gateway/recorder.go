package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"go.uber.org/zap"
)

// AuditRecorder writes audit entries over two paths.
//
// High-value events (credential lifecycle, authentication failures, IP
// blocks) go through Record: a synchronous best-effort insert that degrades
// to the buffer on failure instead of failing the originating request.
// High-frequency events (rate_limited, scope_denied, routine used) go
// through Enqueue: appended to a process-local buffer and flushed when the
// batch size or the flush interval is reached, whichever comes first.
//
// A flush atomically swaps the buffer for an empty one before writing, so
// request-path appends never race the drain. Failed batches are requeued
// for the next attempt; delivery is at-least-once and duplicate rows on a
// crash mid-flush are an accepted tradeoff.
type AuditRecorder struct {
	repo          audit.Repository
	logger        *zap.Logger
	flushInterval time.Duration
	batchSize     int
	writeTimeout  time.Duration

	mu     sync.Mutex
	buffer []*audit.Entry

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewAuditRecorder creates a recorder flushing every flushInterval or
// whenever batchSize entries accumulate.
func NewAuditRecorder(repo audit.Repository, logger *zap.Logger, flushInterval time.Duration, batchSize int, writeTimeout time.Duration) *AuditRecorder {
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &AuditRecorder{
		repo:          repo,
		logger:        logger,
		flushInterval: flushInterval,
		batchSize:     batchSize,
		writeTimeout:  writeTimeout,
		kick:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop
func (r *AuditRecorder) Start() {
	go r.loop()
}

// Stop halts the flush loop after a final drain
func (r *AuditRecorder) Stop() {
	close(r.stop)
	<-r.done
}

// Record writes the entry synchronously, best-effort. On persistence
// failure the entry falls back to the buffered path; the caller's request
// is never failed by an audit write.
func (r *AuditRecorder) Record(ctx context.Context, entry *audit.Entry) {
	wctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if err := r.repo.Insert(wctx, entry); err != nil {
		r.logger.Warn("sync audit write failed, degrading to buffer",
			zap.String("action", string(entry.Action)),
			zap.Error(err))
		r.Enqueue(entry)
	}
}

// Enqueue appends the entry to the process-local buffer without blocking
// the request path.
func (r *AuditRecorder) Enqueue(entry *audit.Entry) {
	r.mu.Lock()
	r.buffer = append(r.buffer, entry)
	full := len(r.buffer) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

// Pending reports the number of buffered entries awaiting flush
func (r *AuditRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

func (r *AuditRecorder) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush(context.Background())
		case <-r.kick:
			r.Flush(context.Background())
		case <-r.stop:
			r.Flush(context.Background())
			return
		}
	}
}

// Flush swaps the buffer out and writes the drained batch. On failure the
// batch is requeued ahead of entries that arrived meanwhile.
func (r *AuditRecorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	wctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if err := r.repo.InsertBatch(wctx, batch); err != nil {
		r.logger.Warn("audit batch flush failed, requeueing",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		r.mu.Lock()
		r.buffer = append(batch, r.buffer...)
		r.mu.Unlock()
	}
}
