// Package sweeper expires overdue exchange requests in the background. Each
// pass lists pending requests past their window and resolves them through the
// orchestrator, so the sweeper holds no business logic of its own.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/config"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/metrics"
	"github.com/Laimiu-debug/lifecard-exchange/internal/orchestrator"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
)

type Sweeper struct {
	cron      *cron.Cron
	pool      *ants.Pool
	store     exchange.Store
	service   orchestrator.Service
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

func NewSweeper(cfg *config.SweeperConfig, store exchange.Store, service orchestrator.Service, logger *slog.Logger) (*Sweeper, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweeper worker pool: %w", err)
	}

	return &Sweeper{
		cron:      cron.New(),
		pool:      pool,
		store:     store,
		service:   service,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		logger:    logger,
	}, nil
}

// Start schedules the sweep and runs one pass immediately, picking up
// requests that expired while no sweeper was running.
func (s *Sweeper) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Sweeper started", "interval", s.interval.String(), "batch_size", s.batchSize)

	go s.Sweep(ctx)
	return nil
}

// Sweep runs a single pass. It drains expired requests in batches until a
// batch comes back short, so a backlog larger than one batch still clears in
// one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	var expired int64

	for {
		n, listed, err := s.sweepBatch(ctx)
		if err != nil {
			s.logger.Error("Sweep pass aborted", "error", err)
			break
		}
		expired += n
		if listed < s.batchSize {
			break
		}
		// A full batch with zero transitions would come back identical on
		// re-list. Those requests stay pending until the next interval.
		if n == 0 {
			s.logger.Warn("Sweep pass stalled, leaving batch for next interval", "listed", listed)
			break
		}
	}

	metrics.SweeperRunDuration.Observe(time.Since(start).Seconds())
	if expired > 0 {
		metrics.SweeperExpiredTotal.Add(float64(expired))
		s.logger.Info("Sweep pass completed", "expired", expired, "duration", time.Since(start).String())
	}
}

func (s *Sweeper) sweepBatch(ctx context.Context) (int64, int, error) {
	requests, err := s.store.ListExpired(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list expired requests: %w", err)
	}
	if len(requests) == 0 {
		return 0, 0, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		expired int64
	)

	for _, req := range requests {
		req := req
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			ok, err := s.service.Expire(ctx, req.ID)
			if err != nil {
				// One stuck request must not block the rest of the batch
				s.logger.Error("Failed to expire request", "exchange_id", req.ID.String(), "error", err)
				return
			}
			if ok {
				mu.Lock()
				expired++
				mu.Unlock()
			}
		}); err != nil {
			wg.Done()
			s.logger.Error("Failed to submit expire task", "exchange_id", req.ID.String(), "error", err)
		}
	}

	wg.Wait()
	return expired, len(requests), nil
}

// Stop halts the schedule and waits for scheduled jobs, then releases the pool.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.pool.Release()
	s.logger.Info("Sweeper stopped")
}
