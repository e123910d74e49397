// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockWorker struct {
	startErr   error
	startCount atomic.Int32
	stopCount  atomic.Int32
	started    chan struct{}
}

func newMockWorker() *mockWorker {
	return &mockWorker{started: make(chan struct{}, 1)}
}

func (m *mockWorker) Start(ctx context.Context) error {
	m.startCount.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	return m.startErr
}

func (m *mockWorker) Stop() {
	m.stopCount.Add(1)
}

func TestWorkerService_Interface(t *testing.T) {
	var _ suture.Service = (*WorkerService)(nil)
}

func TestWorkerService_Serve(t *testing.T) {
	t.Run("starts worker and stops on cancellation", func(t *testing.T) {
		worker := newMockWorker()
		svc := NewWorkerService("etl-pipeline", worker)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		select {
		case <-worker.started:
		case <-time.After(time.Second):
			t.Fatal("worker did not start")
		}

		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after context cancellation")
		}

		if got := worker.stopCount.Load(); got != 1 {
			t.Errorf("expected 1 Stop call, got %d", got)
		}
	})

	t.Run("returns error when start fails", func(t *testing.T) {
		startErr := errors.New("pipeline already running")
		worker := newMockWorker()
		worker.startErr = startErr
		svc := NewWorkerService("etl-pipeline", worker)

		err := svc.Serve(context.Background())
		if !errors.Is(err, startErr) {
			t.Errorf("expected error containing %v, got %v", startErr, err)
		}
		if got := worker.stopCount.Load(); got != 0 {
			t.Errorf("Stop should not be called after failed start, got %d calls", got)
		}
	})
}

func TestWorkerService_String(t *testing.T) {
	svc := NewWorkerService("ingest-consumer", newMockWorker())
	if svc.String() != "ingest-consumer" {
		t.Errorf("expected 'ingest-consumer', got %q", svc.String())
	}
}

func TestWorkerService_WithSupervisor(t *testing.T) {
	worker := newMockWorker()
	svc := NewWorkerService("event-producer", worker)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-worker.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not start under supervision")
	}

	cancel()
	<-errCh

	if worker.stopCount.Load() < 1 {
		t.Error("worker Stop was not called on shutdown")
	}
}
