package repository

import (
	"context"
	"time"

	"clipstream/server/internal/models"
)

// MediaRepository is the record store the pipeline and the HTTP surface
// share. Tenant-scoped lookups are explicit: the streaming path
// authenticates independently of the route layer and must enforce tenant
// isolation itself.
type MediaRepository interface {
	Create(ctx context.Context, m models.Media) error
	// GetByID is unscoped; only internal components (pipeline, queue,
	// reconciliation) may use it.
	GetByID(ctx context.Context, id string) (models.Media, error)
	GetForTenant(ctx context.Context, id string, tenantID string) (models.Media, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Media, error)
	Update(ctx context.Context, m models.Media) error
	Delete(ctx context.Context, id string) error
	// PromoteStatus is a guarded read-check-write: the status is changed to
	// `to` only if the record is currently in one of `from`. Returns whether
	// the write happened.
	PromoteStatus(ctx context.Context, id string, from []models.MediaStatus, to models.MediaStatus) (bool, error)
	// ListStaleProcessing returns records stuck in processing whose last
	// update precedes the cutoff. Used by the reconciliation sweep.
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Media, error)
}
