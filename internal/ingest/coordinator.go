// Package ingest runs the full pipeline: fetch or crawl every configured
// source concurrently, push candidates through deduplication, and publish a
// run summary. One failing source never takes down the run.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/crawl"
	"github.com/jobharbor/harvest/internal/dedup"
	"github.com/jobharbor/harvest/internal/notify"
	"github.com/jobharbor/harvest/internal/source"
	"github.com/jobharbor/harvest/pkg/models"
)

const (
	defaultConcurrency = 5
	maxConcurrency     = 50
	defaultFetchLimit  = 100
)

// task is one unit of work for the pool: either an API source or a career
// page to crawl.
type task struct {
	name   string
	client source.Client
	target *models.CrawlTarget
}

// Coordinator distributes sources and crawl targets across a bounded worker
// pool and funnels every candidate through the dedup engine.
type Coordinator struct {
	engine      *dedup.Engine
	crawler     *crawl.Crawler
	sink        notify.Sink
	concurrency int
	fetchLimit  int

	// Progress is invoked once per completed task when set.
	Progress func()
}

// New creates a coordinator. A nil sink falls back to the structured log.
func New(engine *dedup.Engine, crawler *crawl.Crawler, sink notify.Sink, concurrency, fetchLimit int) *Coordinator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &Coordinator{
		engine:      engine,
		crawler:     crawler,
		sink:        sink,
		concurrency: concurrency,
		fetchLimit:  fetchLimit,
	}
}

// Run processes every source and target and always returns a summary, even
// when all of them failed. The summary is also published to the sink.
func (c *Coordinator) Run(ctx context.Context, sources []source.Client, targets []models.CrawlTarget) models.RunSummary {
	summary := models.RunSummary{StartedAt: time.Now()}

	tasks := make([]task, 0, len(sources)+len(targets))
	for _, s := range sources {
		tasks = append(tasks, task{name: s.Name(), client: s})
	}
	for i := range targets {
		t := targets[i]
		tasks = append(tasks, task{name: t.Name, target: &t})
	}

	jobs := make(chan task, len(tasks))
	results := make(chan models.RunStatistics, len(tasks))

	var wg sync.WaitGroup
	for w := 1; w <= c.concurrency; w++ {
		wg.Add(1)
		go c.worker(ctx, w, jobs, results, &wg)
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for st := range results {
		summary.Sources = append(summary.Sources, st)
		if c.Progress != nil {
			c.Progress()
		}
	}

	summary.FinishedAt = time.Now()
	if err := c.sink.Publish(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("failed to publish run summary")
	}
	return summary
}

func (c *Coordinator) worker(ctx context.Context, id int, jobs <-chan task, results chan<- models.RunStatistics, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Debug().Int("worker_id", id).Msg("ingest worker started")

	for t := range jobs {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("ingest worker cancelled")
			return
		default:
		}

		st := c.process(ctx, t)

		select {
		case results <- st:
		case <-ctx.Done():
			return
		}
	}

	log.Debug().Int("worker_id", id).Msg("ingest worker finished")
}

// process runs one task to completion. Panics from a misbehaving source are
// contained here so the other sources keep running.
func (c *Coordinator) process(ctx context.Context, t task) (st models.RunStatistics) {
	start := time.Now()
	st.Source = t.name

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("source", t.name).
				Interface("panic", r).
				Msg("source processing panicked")
			st.ErrorCount++
		}
		st.Duration = time.Since(start)
	}()

	candidates, err := c.collect(ctx, t)
	st.FetchedCount = len(candidates)
	if err != nil {
		log.Warn().Err(err).Str("source", t.name).Msg("source collection failed")
		st.ErrorCount++
	}

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			st.ErrorCount++
			return st
		}
		_, verdict, err := c.engine.Save(ctx, cand)
		switch {
		case err != nil:
			log.Warn().
				Err(err).
				Str("source", t.name).
				Str("title", cand.Title).
				Msg("candidate save failed")
			st.ErrorCount++
		case !verdict.IsDuplicate:
			st.NewCount++
		case verdict.Confidence == models.ConfidenceLow:
			st.DuplicateCount++
		default:
			st.DuplicateCount++
			st.UpdatedCount++
		}
	}

	log.Info().
		Str("source", t.name).
		Int("fetched", st.FetchedCount).
		Int("new", st.NewCount).
		Int("updated", st.UpdatedCount).
		Int("duplicates", st.DuplicateCount).
		Int("errors", st.ErrorCount).
		Dur("duration", time.Since(start)).
		Msg("source processed")
	return st
}

func (c *Coordinator) collect(ctx context.Context, t task) ([]models.JobCandidate, error) {
	switch {
	case t.client != nil:
		return t.client.Fetch(ctx, c.fetchLimit)
	case t.target != nil:
		if c.crawler == nil {
			return nil, fmt.Errorf("crawl target %q configured but no crawler available", t.name)
		}
		return c.crawler.Crawl(ctx, *t.target)
	default:
		return nil, fmt.Errorf("task %q has neither client nor target", t.name)
	}
}
