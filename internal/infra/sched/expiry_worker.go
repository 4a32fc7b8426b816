package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/infra/logging"
	"restaurant-loyalty/internal/infra/metrics"
	red "restaurant-loyalty/internal/infra/redis"
	"restaurant-loyalty/internal/infra/worker"
)

const sweepLockKey = "lock:redemption_sweep"

// Sweeper is the slice of the redemption use case the worker drives.
type Sweeper interface {
	StaleActivatedIDs(ctx context.Context, limit int) ([]string, error)
	ExpireOne(ctx context.Context, id string) error
}

// ExpiryWorker periodically expires stale activated redemptions. Expiry is
// still enforced lazily at Complete; this is hygiene so abandoned codes do
// not accumulate. The redis lock keeps the sweep single-flight across
// replicas, and per-redemption transitions fan out over the worker pool.
type ExpiryWorker struct {
	interval time.Duration
	batch    int
	redUC    Sweeper
	locker   red.Locker
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, batch int, redUC Sweeper, locker red.Locker, pool *worker.Pool, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		batch:    batch,
		redUC:    redUC,
		locker:   locker,
		pool:     pool,
		log:      &l,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	defer logging.TraceDuration(w.log, "ExpiryWorker.sweep")()

	token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// another replica holds the lock; skip this tick
		w.log.Debug().Msg("sweep already running elsewhere")
		return
	}
	if err != nil {
		// unreachable redis would otherwise disable the sweep silently
		w.log.Warn().Err(err).Msg("sweep lock unavailable")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, sweepLockKey, token) }()

	ids, err := w.redUC.StaleActivatedIDs(ctx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("stale lookup failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		expired int
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		task := func(ctx context.Context) error {
			defer wg.Done()
			if err := w.redUC.ExpireOne(ctx, id); err != nil {
				return err
			}
			mu.Lock()
			expired++
			mu.Unlock()
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			// pool saturated; run inline rather than losing the id
			_ = task(ctx)
		}
	}
	wg.Wait()

	if expired > 0 {
		metrics.IncRedemptionsSwept(expired)
		w.log.Info().Int("count", expired).Msg("stale redemptions expired")
	}
}
