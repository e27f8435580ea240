package jobs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"clipstream/server/internal/config"
	"clipstream/server/internal/events"
	"clipstream/server/internal/models"
	"clipstream/server/internal/notify"
	"clipstream/server/internal/repository"
)

// Scheduler runs the reconciliation sweep: the in-memory queue loses jobs
// on a crash, leaving records stuck in processing. The sweep fails any
// record that has not been touched within the staleness window so a user
// can re-upload instead of waiting forever.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.JobsConfig
	media    repository.MediaRepository
	producer *events.Producer
	hub      *notify.Hub
	log      zerolog.Logger
}

func NewScheduler(
	cfg config.JobsConfig,
	media repository.MediaRepository,
	producer *events.Producer,
	hub *notify.Hub,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		media:    media,
		producer: producer,
		hub:      hub,
		log:      log.With().Str("component", "jobs").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSpec, s.reconcileStale); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSpec, s.pruneScanDirs); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish, up to a short grace period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) reconcileStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.StaleAfter)
	stale, err := s.media.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("stale scan failed")
		return
	}

	for _, m := range stale {
		// Guarded write: only records still in processing are failed.
		ok, err := s.media.PromoteStatus(ctx, m.ID,
			[]models.MediaStatus{models.MediaStatusProcessing},
			models.MediaStatusFailed,
		)
		if err != nil {
			s.log.Error().Err(err).Str("media_id", m.ID).Msg("stale fail write errored")
			continue
		}
		if !ok {
			continue
		}

		s.log.Warn().
			Str("media_id", m.ID).
			Time("last_update", m.UpdatedAt).
			Msg("stale processing record marked failed")

		s.producer.StatusChanged(ctx, m, models.MediaStatusProcessing, models.MediaStatusFailed)
		s.hub.Publish(m.OwnerID, notify.Event{
			MediaID:  m.ID,
			Progress: m.Progress,
			Status:   models.MediaStatusFailed,
			Message:  "Processing interrupted; please upload again",
		})
	}
}

// pruneScanDirs removes frame-scan directories orphaned by a crash. Live
// scans clean up after themselves; only dirs past the staleness window are
// touched.
func (s *Scheduler) pruneScanDirs() {
	dirs, err := filepath.Glob(filepath.Join(os.TempDir(), "clipstream-scan-*"))
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-s.cfg.StaleAfter)
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("scan dir prune failed")
			continue
		}
		s.log.Info().Str("dir", dir).Msg("orphaned scan dir removed")
	}
}
