package audit

import (
	"context"

	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the append-only audit store.
// There are deliberately no update or delete operations.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	InsertBatch(ctx context.Context, entries []*Entry) error
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Entry, int64, error)
}
