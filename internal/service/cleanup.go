package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupWorker periodically settles due cleanup tasks.
type CleanupWorker struct {
	packer   PackerService
	interval time.Duration
	log      *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewCleanupWorker builds a worker that polls on the given interval.
func NewCleanupWorker(packer PackerService, interval time.Duration, log *zap.Logger) *CleanupWorker {
	return &CleanupWorker{
		packer:   packer,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called.
func (w *CleanupWorker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("cleanup worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			executed, err := w.packer.ExecuteDueCleanups(ctx)
			if err != nil {
				w.log.Error("cleanup sweep failed", zap.Error(err))
				continue
			}
			if executed > 0 {
				w.log.Info("cleanup sweep done", zap.Int("tasks_executed", executed))
			}
		}
	}
}

// Stop halts the loop and waits for the current sweep to finish.
func (w *CleanupWorker) Stop() {
	close(w.stop)
	<-w.done
}
