package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEntry() *audit.Entry {
	return audit.NewEntry(uuid.New(), audit.ActorCredential, "cred-1", audit.ActionUsed, "/api/v1/leads", audit.OutcomeSuccess)
}

func TestAuditRecorder_SyncPath(t *testing.T) {
	ctx := context.Background()

	t.Run("writes immediately when the store is healthy", func(t *testing.T) {
		repo := newFakeAuditRepo()
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)

		rec.Record(ctx, newTestEntry())
		assert.Len(t, repo.recorded(), 1)
		assert.Zero(t, rec.Pending())
	})

	t.Run("degrades to the buffer on persistence failure", func(t *testing.T) {
		repo := newFakeAuditRepo()
		repo.failInserts = true
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)

		rec.Record(ctx, newTestEntry())
		assert.Empty(t, repo.recorded())
		assert.Equal(t, 1, rec.Pending())

		// the entry survives and is delivered once the store recovers
		repo.failInserts = false
		rec.Flush(ctx)
		assert.Len(t, repo.recorded(), 1)
		assert.Zero(t, rec.Pending())
	})
}

func TestAuditRecorder_BufferedPath(t *testing.T) {
	ctx := context.Background()

	t.Run("flush drains the buffer in one batch", func(t *testing.T) {
		repo := newFakeAuditRepo()
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)

		for i := 0; i < 5; i++ {
			rec.Enqueue(newTestEntry())
		}
		assert.Equal(t, 5, rec.Pending())

		rec.Flush(ctx)
		assert.Len(t, repo.recorded(), 5)
		assert.Zero(t, rec.Pending())
		assert.Equal(t, 1, repo.batchCalls)
	})

	t.Run("failed flush requeues the batch for a later attempt", func(t *testing.T) {
		repo := newFakeAuditRepo()
		repo.failBatches = 1
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)

		for i := 0; i < 3; i++ {
			rec.Enqueue(newTestEntry())
		}
		rec.Flush(ctx)
		assert.Empty(t, repo.recorded())
		assert.Equal(t, 3, rec.Pending(), "failed batch must be requeued")

		rec.Flush(ctx)
		assert.Len(t, repo.recorded(), 3)
		assert.Zero(t, rec.Pending())
	})

	t.Run("requeued entries keep their order ahead of later arrivals", func(t *testing.T) {
		repo := newFakeAuditRepo()
		repo.failBatches = 1
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)

		first := newTestEntry()
		rec.Enqueue(first)
		rec.Flush(ctx)

		second := newTestEntry()
		rec.Enqueue(second)
		rec.Flush(ctx)

		entries := repo.recorded()
		require.Len(t, entries, 2)
		assert.Equal(t, first.ID, entries[0].ID)
		assert.Equal(t, second.ID, entries[1].ID)
	})

	t.Run("reaching the batch size triggers a background flush", func(t *testing.T) {
		repo := newFakeAuditRepo()
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 3, time.Second)
		rec.Start()
		defer rec.Stop()

		for i := 0; i < 3; i++ {
			rec.Enqueue(newTestEntry())
		}

		assert.Eventually(t, func() bool {
			return len(repo.recorded()) == 3
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("stop drains whatever is still buffered", func(t *testing.T) {
		repo := newFakeAuditRepo()
		rec := NewAuditRecorder(repo, zap.NewNop(), time.Hour, 100, time.Second)
		rec.Start()

		rec.Enqueue(newTestEntry())
		rec.Enqueue(newTestEntry())
		rec.Stop()

		assert.Len(t, repo.recorded(), 2)
	})
}

func TestAuditRecorder_ConcurrentEnqueue(t *testing.T) {
	repo := newFakeAuditRepo()
	rec := NewAuditRecorder(repo, zap.NewNop(), 20*time.Millisecond, 10, time.Second)
	rec.Start()

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func() {
			for i := 0; i < 25; i++ {
				rec.Enqueue(newTestEntry())
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < 4; w++ {
		<-done
	}
	rec.Stop()

	// every entry is delivered exactly once within a single process
	assert.Len(t, repo.recorded(), 100)
}
