// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package services

import (
	"context"
	"fmt"
)

// Worker is a long-running background component with an explicit lifecycle.
// The ETL pipeline, the ingest consumer and the synthetic producer all
// satisfy it.
type Worker interface {
	Start(ctx context.Context) error
	Stop()
}

// WorkerService adapts a Worker to suture.Service. Start is expected to
// return quickly after spawning the worker's loop; the service then blocks
// until the supervision tree cancels it and calls Stop to drain.
type WorkerService struct {
	name   string
	worker Worker
}

// NewWorkerService creates the wrapper. name identifies the worker in
// supervisor logs.
func NewWorkerService(name string, worker Worker) *WorkerService {
	return &WorkerService{
		name:   name,
		worker: worker,
	}
}

// Serve implements suture.Service.
func (w *WorkerService) Serve(ctx context.Context) error {
	if err := w.worker.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", w.name, err)
	}

	<-ctx.Done()

	w.worker.Stop()
	return ctx.Err()
}

func (w *WorkerService) String() string {
	return w.name
}
