package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/log"
	"github.com/instmulti/instmulti/storage"
	"github.com/instmulti/instmulti/texts"
	"golang.org/x/sync/errgroup"
)

// Coordinator fans one run out over a fixed pool of workers, each owning a
// contiguous chunk of the account list. At most one run is active at a time.
type Coordinator struct {
	cfg      *config.Config
	provider SessionProvider
	callback StatusCallback

	mu      sync.Mutex
	running bool
	ctrl    *Control
	stats   *RunStats
}

func NewCoordinator(cfg *config.Config, provider SessionProvider, callback StatusCallback) *Coordinator {
	return &Coordinator{cfg: cfg, provider: provider, callback: callback}
}

// Run validates the chain, splits the accounts across workers and blocks
// until every worker has drained its chunk or the run is stopped. Only
// chain-level validation errors and double starts are reported as errors;
// per-account and per-target failures are absorbed into the statistics.
func (c *Coordinator) Run(ctx context.Context, accounts []storage.Account, targets []string,
	steps []chain.Step, pool texts.Pool) (StatsSnapshot, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return StatsSnapshot{}, fmt.Errorf("a run is already in progress")
	}
	c.running = true
	c.ctrl = NewControl(ctx)
	c.stats = NewRunStats()
	ctrl, stats := c.ctrl, c.stats
	c.mu.Unlock()

	defer func() {
		ctrl.Stop()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	if res := chain.Validate(steps); !res.Valid() {
		return stats.Snapshot(), fmt.Errorf("invalid action chain: %s", res.Errors[0])
	}
	if len(accounts) == 0 {
		return stats.Snapshot(), fmt.Errorf("no accounts to run")
	}
	if len(targets) == 0 {
		return stats.Snapshot(), fmt.Errorf("no targets to process")
	}

	logger := log.LoggerFromContext(ctx)
	chunks := distributeAccounts(accounts, c.cfg.Workers)
	logger.Info("starting run", slog.Int("workers", len(chunks)),
		slog.Int("accounts", len(accounts)), slog.Int("targets", len(targets)))

	g := new(errgroup.Group)
	for workerID, chunk := range chunks {
		g.Go(func() error {
			c.workerLoop(ctx, workerID, chunk, targets, steps, pool, ctrl, stats)
			return nil
		})
	}
	_ = g.Wait()

	snap := stats.Snapshot()
	logger.Info("run finished", slog.Int("total", snap.TotalActions),
		slog.Int("successful", snap.SuccessfulActions), slog.Int("failed", snap.FailedActions),
		slog.Int("accounts", snap.AccountsProcessed))
	return snap, nil
}

func (c *Coordinator) workerLoop(ctx context.Context, workerID int, accounts []storage.Account,
	targets []string, steps []chain.Step, pool texts.Pool, ctrl *Control, stats *RunStats) {
	logger := log.LoggerFromContext(ctx).With(slog.Int("worker", workerID))
	ctx = log.ContextWithLogger(ctx, logger)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	orch := NewOrchestrator(c.provider, c.cfg, steps, pool, stats, ctrl, rnd, c.callback, workerID)

	for i := range accounts {
		if ctrl.Paused() && c.callback != nil {
			c.callback(workerID, StatusPaused, "", nil)
		}
		if !ctrl.WaitIfPaused() {
			logger.Info("worker stopped", slog.Int("remaining", len(accounts)-i))
			break
		}
		orch.RunAccount(ctx, &accounts[i], targets)
		if i < len(accounts)-1 {
			if !ctrl.Sleep(uniformDuration(rnd, c.cfg.Delays.BetweenAccounts)) {
				break
			}
		}
	}
	if c.callback != nil {
		c.callback(workerID, StatusIdle, "", nil)
	}
}

// Stop signals every worker to finish its current step and exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl != nil {
		c.ctrl.Stop()
	}
}

// Pause suspends all workers at their next delay or step boundary.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl != nil {
		c.ctrl.Pause()
	}
}

// Resume lifts a pause.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl != nil {
		c.ctrl.Resume()
	}
}

func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stats returns a snapshot of the current or most recent run.
func (c *Coordinator) Stats() StatsSnapshot {
	c.mu.Lock()
	stats := c.stats
	c.mu.Unlock()
	if stats == nil {
		return StatsSnapshot{}
	}
	return stats.Snapshot()
}

// distributeAccounts splits accounts into up to workers contiguous chunks.
// Chunk sizes differ by at most one, with the larger chunks first, and empty
// chunks are never produced.
func distributeAccounts(accounts []storage.Account, workers int) [][]storage.Account {
	if workers < 1 {
		workers = 1
	}
	if workers > len(accounts) {
		workers = len(accounts)
	}
	if workers == 0 {
		return nil
	}
	base := len(accounts) / workers
	extra := len(accounts) % workers
	chunks := make([][]storage.Account, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, accounts[start:start+size])
		start += size
	}
	return chunks
}
