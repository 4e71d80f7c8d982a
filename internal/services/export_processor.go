package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"ssmartr/internal/log"
)

// Exporter pushes the current overview somewhere outside the process.
type Exporter interface {
	ExportOverview(ctx context.Context) error
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// Interval is how often the overview is re-exported (default: 5m)
	Interval time.Duration

	// MaxRetries is how many consecutive failures are tolerated before the
	// processor reports the export as failing (default: 3)
	MaxRetries int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Interval:   5 * time.Minute,
		MaxRetries: 3,
	}
}

// ExportProcessor re-exports the overview on a fixed interval. It backs up
// the broker-driven export in case change messages are lost.
type ExportProcessor struct {
	exporter Exporter
	config   ExportProcessorConfig
	logger   *log.Logger

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	failures int
}

func NewExportProcessor(exporter Exporter, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultExportProcessorConfig().Interval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultExportProcessorConfig().MaxRetries
	}
	return &ExportProcessor{
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	p.logger.InfoContext(ctx, "Export processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stop, done := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stop)

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Failures is the number of consecutive failed exports.
func (p *ExportProcessor) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *ExportProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.exportOnce(ctx)
		}
	}
}

// exportOnce runs one export and tracks consecutive failures. A failed
// export is retried on the next tick.
func (p *ExportProcessor) exportOnce(ctx context.Context) {
	err := p.exporter.ExportOverview(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		if p.failures > 0 {
			p.logger.InfoContext(ctx, "Export recovered", "after_failures", p.failures)
		}
		p.failures = 0
		return
	}

	p.failures++
	if p.failures >= p.config.MaxRetries {
		p.logger.LogError(ctx, "Export failing repeatedly", err, log.OpExport,
			log.LogFields{"attempts": p.failures})
		return
	}
	p.logger.WarnContext(ctx, "Export failed, will retry",
		"attempt", p.failures,
		log.FieldError, err.Error())
}
