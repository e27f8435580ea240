// Package queue serializes pipeline jobs: an unbounded in-process FIFO
// drained by a single worker goroutine, exactly one job in flight at a
// time. Jobs live only in memory; a process crash loses whatever was
// queued or running.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clipstream/server/internal/models"
	"clipstream/server/internal/notify"
)

// Job pairs the record to process with its notification target.
type Job struct {
	MediaID    string
	OwnerID    string
	EnqueuedAt time.Time
}

// Runner executes one job to completion or failure. There is no
// cancellation: the context passed in is never cancelled by the queue.
type Runner interface {
	Run(ctx context.Context, mediaID string, onProgress func(percent int, message string)) error
}

// Status is an observability snapshot, never used for control decisions.
type Status struct {
	Length  int    `json:"length"`
	Busy    bool   `json:"busy"`
	Current string `json:"current,omitempty"`
}

type Queue struct {
	mu      sync.Mutex
	jobs    []Job
	busy    bool
	current string

	runner Runner
	hub    *notify.Hub
	log    zerolog.Logger
}

func New(runner Runner, hub *notify.Hub, log zerolog.Logger) *Queue {
	return &Queue{
		runner: runner,
		hub:    hub,
		log:    log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue appends the job and wakes the worker if idle. It never blocks
// the caller and never rejects.
func (q *Queue) Enqueue(mediaID, ownerID string) {
	q.mu.Lock()
	q.jobs = append(q.jobs, Job{
		MediaID:    mediaID,
		OwnerID:    ownerID,
		EnqueuedAt: time.Now(),
	})
	depth := len(q.jobs)
	start := !q.busy
	if start {
		q.busy = true
	}
	q.mu.Unlock()

	q.log.Debug().Str("media_id", mediaID).Int("depth", depth).Msg("job enqueued")

	if start {
		go q.work()
	}
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Length:  len(q.jobs),
		Busy:    q.busy,
		Current: q.current,
	}
}

// work drains the FIFO one job at a time. Each iteration picks the next
// job under the lock, so advancing never grows the call stack and
// concurrent enqueues interleave safely.
func (q *Queue) work() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.busy = false
			q.current = ""
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.current = job.MediaID
		q.mu.Unlock()

		q.run(job)
	}
}

func (q *Queue) run(job Job) {
	started := time.Now()
	q.log.Info().Str("media_id", job.MediaID).Msg("job started")

	onProgress := func(percent int, message string) {
		q.hub.Publish(job.OwnerID, notify.Event{
			MediaID:   job.MediaID,
			Progress:  percent,
			Status:    models.MediaStatusProcessing,
			Message:   message,
			Timestamp: time.Now(),
		})
	}

	// A single job's failure never halts the queue: log and move on.
	if err := q.runner.Run(context.Background(), job.MediaID, onProgress); err != nil {
		q.log.Error().
			Err(err).
			Str("media_id", job.MediaID).
			Dur("elapsed", time.Since(started)).
			Msg("job failed")
		return
	}

	q.log.Info().
		Str("media_id", job.MediaID).
		Dur("elapsed", time.Since(started)).
		Msg("job finished")
}
