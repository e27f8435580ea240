package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream/server/internal/models"
)

func seedMedia(t *testing.T, r *MemoryMediaRepository, id, tenantID string, status models.MediaStatus) models.Media {
	t.Helper()
	m := models.Media{
		ID:       id,
		TenantID: tenantID,
		OwnerID:  "owner-" + tenantID,
		Title:    "clip " + id,
		Status:   status,
	}
	require.NoError(t, r.Create(context.Background(), m))
	return m
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "m1", "t1", models.MediaStatusUploaded)

	err := r.Create(context.Background(), models.Media{ID: "m1", TenantID: "t1"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGetForTenantHidesOtherTenants(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "m1", "t1", models.MediaStatusReady)

	got, err := r.GetForTenant(context.Background(), "m1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = r.GetForTenant(context.Background(), "m1", "t2")
	assert.ErrorIs(t, err, models.ErrMediaNotFound)

	_, err = r.GetForTenant(context.Background(), "missing", "t1")
	assert.ErrorIs(t, err, models.ErrMediaNotFound)
}

func TestListByTenantOrdersAndPaginates(t *testing.T) {
	r := NewMemoryMediaRepository()
	for i := 0; i < 5; i++ {
		seedMedia(t, r, fmt.Sprintf("m%d", i), "t1", models.MediaStatusReady)
		time.Sleep(time.Millisecond)
	}
	seedMedia(t, r, "other", "t2", models.MediaStatusReady)

	items, err := r.ListByTenant(context.Background(), "t1", 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 5)
	// Newest first.
	assert.Equal(t, "m4", items[0].ID)
	assert.Equal(t, "m0", items[4].ID)

	page, err := r.ListByTenant(context.Background(), "t1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m3", page[0].ID)
	assert.Equal(t, "m2", page[1].ID)

	empty, err := r.ListByTenant(context.Background(), "t1", 10, 100)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	r := NewMemoryMediaRepository()
	m := seedMedia(t, r, "m1", "t1", models.MediaStatusUploaded)

	stored, err := r.GetByID(context.Background(), m.ID)
	require.NoError(t, err)

	stored.Title = "renamed"
	stored.CreatedAt = time.Time{} // callers cannot reset it
	require.NoError(t, r.Update(context.Background(), stored))

	got, err := r.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPromoteStatusIsGuarded(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "m1", "t1", models.MediaStatusSafe)

	promoted, err := r.PromoteStatus(context.Background(), "m1",
		[]models.MediaStatus{models.MediaStatusSafe, models.MediaStatusFlagged},
		models.MediaStatusReady)
	require.NoError(t, err)
	assert.True(t, promoted)

	got, err := r.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaStatusReady, got.Status)

	// Second attempt finds no matching source status and leaves the
	// record alone.
	promoted, err = r.PromoteStatus(context.Background(), "m1",
		[]models.MediaStatus{models.MediaStatusSafe, models.MediaStatusFlagged},
		models.MediaStatusReady)
	require.NoError(t, err)
	assert.False(t, promoted)

	_, err = r.PromoteStatus(context.Background(), "missing",
		[]models.MediaStatus{models.MediaStatusSafe}, models.MediaStatusReady)
	assert.ErrorIs(t, err, models.ErrMediaNotFound)
}

func TestPromoteStatusDoesNotTouchFailedRecords(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "m1", "t1", models.MediaStatusFailed)

	promoted, err := r.PromoteStatus(context.Background(), "m1",
		[]models.MediaStatus{models.MediaStatusSafe, models.MediaStatusFlagged},
		models.MediaStatusReady)
	require.NoError(t, err)
	assert.False(t, promoted)

	got, err := r.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaStatusFailed, got.Status)
}

func TestListStaleProcessing(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "stuck", "t1", models.MediaStatusProcessing)
	seedMedia(t, r, "done", "t1", models.MediaStatusReady)

	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	seedMedia(t, r, "fresh", "t1", models.MediaStatusProcessing)

	stale, err := r.ListStaleProcessing(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stuck", stale[0].ID)
}

func TestDelete(t *testing.T) {
	r := NewMemoryMediaRepository()
	seedMedia(t, r, "m1", "t1", models.MediaStatusReady)

	require.NoError(t, r.Delete(context.Background(), "m1"))
	_, err := r.GetByID(context.Background(), "m1")
	assert.ErrorIs(t, err, models.ErrMediaNotFound)

	assert.ErrorIs(t, r.Delete(context.Background(), "m1"), models.ErrMediaNotFound)
}

func TestOperationsHonorContextCancellation(t *testing.T) {
	r := NewMemoryMediaRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, r.Create(ctx, models.Media{ID: "m1"}))
	_, err := r.GetByID(ctx, "m1")
	assert.Error(t, err)
}
