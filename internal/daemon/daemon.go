package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"adloom/internal/config"
	"adloom/internal/logging"
	"adloom/internal/orchestrator"
	"adloom/internal/session"
)

// Version is the daemon version reported over the API.
const Version = "0.1.0"

// Daemon owns the HTTP API and the orchestrator lifetime, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	orch   *orchestrator.Orchestrator
	hub    *logging.StreamHub

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	StartedAt    time.Time
	Sessions     session.Stats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger, orch *orchestrator.Orchestrator, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, logger, and orchestrator")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "adloomd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start acquires the daemon lock, fails over sessions interrupted by a
// previous shutdown, and starts the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another adloom daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.orch.SetLifetime(d.ctx)

	swept, err := d.store.MarkStuckSessionsFailed(d.ctx)
	if err != nil {
		d.logger.Warn("failed to sweep interrupted sessions", logging.Error(err))
	} else if swept > 0 {
		d.logger.Info("marked interrupted sessions as failed", slog.Int64("count", swept))
	}

	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("adloom daemon started", slog.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server, cancels in-flight runs, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.orch.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("adloom daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, or empty before Start.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status reports runtime information about the daemon.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		StartedAt:    d.startedAt,
	}
	stats, err := d.store.SessionStats(ctx)
	if err != nil {
		d.logger.Warn("failed to load session stats", logging.Error(err))
	} else {
		status.Sessions = stats
	}
	return status
}
