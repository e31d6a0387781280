package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingExporter exports whatever imports are still waiting and reports how
// many it handled.
type PendingExporter interface {
	ProcessPendingImports(ctx context.Context) (int, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for unexported imports (default: 1m)
	PollInterval time.Duration
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: time.Minute,
	}
}

// ExportProcessor periodically exports imports whose completion message was
// lost or could not be handled.
type ExportProcessor struct {
	exporter PendingExporter
	config   ExportProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(exporter PendingExporter, config ExportProcessorConfig) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	return &ExportProcessor{
		exporter: exporter,
		config:   config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *ExportProcessor) processBatch(ctx context.Context) {
	n, err := p.exporter.ProcessPendingImports(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process pending imports", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "Exported pending imports", "count", n)
	}
}
