package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingExporter struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (e *countingExporter) ExportOverview(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(e.errs) == 0 {
		return nil
	}
	err := e.errs[0]
	e.errs = e.errs[1:]
	return err
}

func (e *countingExporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()
	if config.Interval != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", config.Interval)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}

	p := NewExportProcessor(&countingExporter{}, ExportProcessorConfig{}, nil)
	if p.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", p.config)
	}
}

func TestExportProcessor_Lifecycle(t *testing.T) {
	exp := &countingExporter{}
	p := NewExportProcessor(exp, ExportProcessorConfig{Interval: 10 * time.Millisecond}, nil)
	ctx := context.Background()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("second Start() should fail")
	}

	deadline := time.Now().Add(time.Second)
	for exp.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if exp.Calls() < 2 {
		t.Fatalf("expected periodic exports, got %d", exp.Calls())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("processor still running after Stop")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("Stop() on stopped processor = %v", err)
	}
}

func TestExportProcessor_FailureCounting(t *testing.T) {
	boom := errors.New("sheets unavailable")
	exp := &countingExporter{errs: []error{boom, boom, boom, nil}}
	p := NewExportProcessor(exp, ExportProcessorConfig{Interval: time.Hour, MaxRetries: 2}, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		p.exportOnce(ctx)
		if p.Failures() != i {
			t.Fatalf("after %d failures Failures() = %d", i, p.Failures())
		}
	}
	p.exportOnce(ctx)
	if p.Failures() != 0 {
		t.Errorf("success should reset failures, got %d", p.Failures())
	}
}
