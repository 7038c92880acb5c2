// Package schedule wires up the cron job that periodically triggers a full
// ingestion run.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/ingest"
	"github.com/jobharbor/harvest/internal/source"
	"github.com/jobharbor/harvest/pkg/models"
)

// Scheduler wraps robfig/cron around the ingestion coordinator.
type Scheduler struct {
	cron    *cron.Cron
	coord   *ingest.Coordinator
	sources []source.Client
	targets []models.CrawlTarget
	spec    string // cron spec, e.g. "@every 6h"
	running atomic.Bool
}

// New creates a scheduler that fires on the given cron spec.
func New(coord *ingest.Coordinator, sources []source.Client, targets []models.CrawlTarget, spec string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DiscardLogger)),
		coord:   coord,
		sources: sources,
		targets: targets,
		spec:    spec,
	}
}

// Start registers the job and starts the scheduler. One run fires
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("register cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("ingestion schedule started")

	go s.runOnce(ctx)
	return nil
}

// Stop shuts the scheduler down. A run already in flight completes.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("ingestion schedule stopped")
}

// runOnce executes one ingestion pass. Overlapping ticks are skipped so a
// slow run never stacks up behind itself.
func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("previous ingestion run still in flight, skipping tick")
		return
	}
	defer s.running.Store(false)

	if ctx.Err() != nil {
		return
	}
	s.coord.Run(ctx, s.sources, s.targets)
}
