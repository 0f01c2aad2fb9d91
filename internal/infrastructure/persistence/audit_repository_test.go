package persistence

import (
	"context"
	"testing"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAuditRepository_Insert(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAuditRepository(newTestDB(t))
	tenantID := uuid.New()

	t.Run("round trips an entry with metadata", func(t *testing.T) {
		entry := audit.NewEntry(tenantID, audit.ActorCredential, "cred-1", audit.ActionUsed, "leads", audit.OutcomeSuccess).
			WithMetadata("path", "/api/v1/leads").
			WithClient("203.0.113.9", "integration-client/2.1")
		require.NoError(t, repo.Insert(ctx, entry))

		entries, total, err := repo.FindAllForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, audit.ActionUsed, entries[0].Action)
		assert.Equal(t, audit.SeverityInfo, entries[0].Severity)
		assert.Equal(t, "/api/v1/leads", entries[0].Metadata["path"])
		assert.Equal(t, "203.0.113.9", entries[0].IPAddress)
	})

	t.Run("insert batch appends every entry", func(t *testing.T) {
		batchTenant := uuid.New()
		batch := []*audit.Entry{
			audit.NewEntry(batchTenant, audit.ActorCredential, "cred-2", audit.ActionAuthFailed, "", audit.OutcomeFailure),
			audit.NewEntry(batchTenant, audit.ActorCredential, "cred-2", audit.ActionRateLimited, "", audit.OutcomeBlocked),
			audit.NewEntry(batchTenant, audit.ActorHuman, "admin-7", audit.ActionRevoked, "cred-2", audit.OutcomeSuccess),
		}
		require.NoError(t, repo.InsertBatch(ctx, batch))

		_, total, err := repo.FindAllForTenant(ctx, batchTenant, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.InsertBatch(ctx, nil))
	})

	t.Run("entries are invisible to other tenants", func(t *testing.T) {
		_, total, err := repo.FindAllForTenant(ctx, uuid.New(), shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestGormAuditRepository_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAuditRepository(newTestDB(t))
	tenantID := uuid.New()

	for i := 0; i < 25; i++ {
		entry := audit.NewEntry(tenantID, audit.ActorCredential, "cred-1", audit.ActionUsed, "leads", audit.OutcomeSuccess)
		require.NoError(t, repo.Insert(ctx, entry))
	}

	filter := shared.DefaultFilter()
	filter.PageSize = 10

	entries, total, err := repo.FindAllForTenant(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, entries, 10)

	filter.Page = 3
	entries, _, err = repo.FindAllForTenant(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
