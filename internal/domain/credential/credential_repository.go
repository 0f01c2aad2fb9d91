package credential

import (
	"context"

	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines persistence operations for API credentials.
//
// IncrementDailyUsage and ResetDailyUsage must be atomic at the database:
// the gateway runs as many stateless instances and a read-modify-write in
// process memory undercounts under concurrency.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*APICredential, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*APICredential, error)
	// FindByKeyHash is the hot-path point lookup used on every request
	FindByKeyHash(ctx context.Context, keyHash string) (*APICredential, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]APICredential, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, cred *APICredential) error

	// IncrementDailyUsage adds one to the daily counter with a single
	// fetch-and-add statement and returns the post-increment value.
	IncrementDailyUsage(ctx context.Context, id uuid.UUID) (int64, error)

	// ResetDailyUsage zeroes the counter and stamps it with usageDate, but
	// only when the stored date differs, so exactly one instance performs
	// the rollover per UTC day.
	ResetDailyUsage(ctx context.Context, id uuid.UUID, usageDate string) error
}
