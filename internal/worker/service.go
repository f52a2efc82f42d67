// Package worker runs the clearhead HTTP API and the background processing
// queue that drives dumps through the pipeline.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	gormdb "github.com/thebtf/clearhead/internal/db/gorm"
	"github.com/thebtf/clearhead/internal/pipeline"
	"github.com/thebtf/clearhead/internal/search"
	"github.com/thebtf/clearhead/internal/worker/sse"
)

// Options tunes the queue and reconciliation behavior. Zero values take the
// defaults below.
type Options struct {
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	StuckAfter    time.Duration
}

const (
	defaultWorkers       = 2
	defaultQueueSize     = 256
	defaultSweepInterval = time.Minute
	defaultStuckAfter    = 5 * time.Minute
	sweepBatchSize       = 50
)

// Service owns the API router, the dump queue, and the worker goroutines.
type Service struct {
	version string
	opts    Options

	dumps    *gormdb.DumpStore
	thoughts *gormdb.ThoughtStore

	pipeline    *pipeline.Pipeline
	searcher    *search.Manager
	broadcaster *sse.Broadcaster

	router    chi.Router
	queue     chan int64
	startTime time.Time
	ready     atomic.Bool
}

// NewService wires the service. searcher may be nil when no embedder is
// configured; the search endpoint then reports unavailable.
func NewService(version string, opts Options, dumps *gormdb.DumpStore, thoughts *gormdb.ThoughtStore, pl *pipeline.Pipeline, searcher *search.Manager, broadcaster *sse.Broadcaster) *Service {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = defaultStuckAfter
	}

	svc := &Service{
		version:     version,
		opts:        opts,
		dumps:       dumps,
		thoughts:    thoughts,
		pipeline:    pl,
		searcher:    searcher,
		broadcaster: broadcaster,
		router:      chi.NewRouter(),
		queue:       make(chan int64, opts.QueueSize),
		startTime:   time.Now(),
	}
	svc.setupRoutes()
	return svc
}

// Router exposes the HTTP handler for the server in cmd.
func (s *Service) Router() chi.Router { return s.router }

// Enqueue hands a dump to the worker pool. Returns false when the queue is
// full; the reconciliation sweep will pick the dump up later.
func (s *Service) Enqueue(dumpID int64) bool {
	select {
	case s.queue <- dumpID:
		return true
	default:
		log.Warn().Int64("dumpId", dumpID).Msg("Dump queue full, deferring to reconciliation sweep")
		return false
	}
}

// Run starts the worker pool and the reconciliation sweep, blocking until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.ready.Store(true)
	defer s.ready.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error { return s.workLoop(ctx) })
	}
	g.Go(func() error { return s.sweepLoop(ctx) })

	log.Info().Int("workers", s.opts.Workers).Msg("Worker pool started")
	return g.Wait()
}

func (s *Service) workLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dumpID := <-s.queue:
			if err := s.pipeline.Process(ctx, dumpID); err != nil {
				log.Error().Err(err).Int64("dumpId", dumpID).Msg("Pipeline run failed")
			}
		}
	}
}

// sweepLoop periodically re-enqueues unprocessed dumps older than StuckAfter.
// Re-driving an already-processed dump is harmless, so duplicate enqueues
// between the queue and the sweep need no coordination.
func (s *Service) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.opts.StuckAfter)
	stuck, err := s.dumps.ListStuckDumps(ctx, cutoff, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Reconciliation sweep query failed")
		return
	}
	if len(stuck) == 0 {
		return
	}

	log.Info().Int("count", len(stuck)).Msg("Re-enqueueing stuck dumps")
	for _, dump := range stuck {
		if !s.Enqueue(dump.ID) {
			return
		}
		s.broadcaster.Publish(pipeline.Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: pipeline.StageQueued, Detail: "reconciled"})
	}
}
