package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExporter struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (e *countingExporter) Export(context.Context) error {
	if e.calls.Add(1) == 1 && e.done != nil {
		close(e.done)
	}
	return e.err
}

func TestReportWorkerExportsOnStartup(t *testing.T) {
	exporter := &countingExporter{done: make(chan struct{})}
	w := NewReportWorker(exporter, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	select {
	case <-exporter.done:
	case <-time.After(time.Second):
		t.Fatal("initial export did not happen")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}

	if got := exporter.calls.Load(); got != 1 {
		t.Errorf("exports = %d, want 1", got)
	}
}

func TestReportWorkerKeepsRunningAfterFailure(t *testing.T) {
	exporter := &countingExporter{err: errors.New("sheet unavailable")}
	w := NewReportWorker(exporter, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	deadline := time.After(time.Second)
	for exporter.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("worker stopped retrying after export failures")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	<-stopped
}
