package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream/server/internal/config"
	"clipstream/server/internal/models"
	"clipstream/server/internal/notify"
	"clipstream/server/internal/repository"
)

func TestReconcileStaleFailsStuckRecords(t *testing.T) {
	repo := repository.NewMemoryMediaRepository()
	hub := notify.NewHub()

	require.NoError(t, repo.Create(context.Background(), models.Media{
		ID:       "stuck",
		TenantID: "t1",
		OwnerID:  "u1",
		Status:   models.MediaStatusProcessing,
	}))
	require.NoError(t, repo.Create(context.Background(), models.Media{
		ID:       "fine",
		TenantID: "t1",
		OwnerID:  "u1",
		Status:   models.MediaStatusReady,
	}))

	sub := hub.SubscribeUser("u1")
	defer sub.Close()

	// Everything older than "now" counts as stale.
	time.Sleep(2 * time.Millisecond)
	cfg := config.JobsConfig{StaleAfter: 0}
	s := NewScheduler(cfg, repo, nil, hub, zerolog.Nop())

	s.reconcileStale()

	got, err := repo.GetByID(context.Background(), "stuck")
	require.NoError(t, err)
	assert.Equal(t, models.MediaStatusFailed, got.Status)

	fine, err := repo.GetByID(context.Background(), "fine")
	require.NoError(t, err)
	assert.Equal(t, models.MediaStatusReady, fine.Status)

	select {
	case ev := <-sub.C:
		assert.Equal(t, "stuck", ev.MediaID)
		assert.Equal(t, models.MediaStatusFailed, ev.Status)
		assert.Equal(t, "Processing interrupted; please upload again", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("no failure notification delivered")
	}
}

func TestReconcileStaleLeavesFreshProcessingAlone(t *testing.T) {
	repo := repository.NewMemoryMediaRepository()
	require.NoError(t, repo.Create(context.Background(), models.Media{
		ID:      "active",
		OwnerID: "u1",
		Status:  models.MediaStatusProcessing,
	}))

	cfg := config.JobsConfig{StaleAfter: time.Hour}
	s := NewScheduler(cfg, repo, nil, notify.NewHub(), zerolog.Nop())

	s.reconcileStale()

	got, err := repo.GetByID(context.Background(), "active")
	require.NoError(t, err)
	assert.Equal(t, models.MediaStatusProcessing, got.Status)
}
