// Package backend builds the pluggable outbound adapters selected by
// configuration: the spreadsheet exporter and the import event publisher.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finanzen/internal/amqp"
	"finanzen/internal/config"
	"finanzen/internal/services"
	"finanzen/internal/sheets"
	gsheet "finanzen/internal/sheets/google"
	"finanzen/internal/sheets/memory"
)

// Factory creates adapters, logging what it chose.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Exporter returns the exporter named by cfg.ExportBackend, or nil for
// ExportNone.
func (f *Factory) Exporter(ctx context.Context, cfg *config.Config) (sheets.TransactionExporter, error) {
	switch cfg.ExportBackend {
	case config.ExportNone, "":
		f.logger.Info("Spreadsheet export disabled")
		return nil, nil
	case config.ExportMemory:
		f.logger.Info("Initialized memory export backend")
		return memory.New(), nil
	case config.ExportSheets:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets export backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", cfg.ExportBackend)
	}
}

// Publisher connects the import event publisher. Messaging is optional: when
// it is disabled or the broker is unreachable the returned publisher is nil
// and imports are still stored. The cleanup function is always non-nil.
func (f *Factory) Publisher(cfg *config.Config) (services.ImportPublisher, func()) {
	if !cfg.MessagingEnabled() {
		f.logger.Info("AMQP disabled - import events will not be published")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, func() {}
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			f.logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
}

// Consumer connects the AMQP client the worker consumes from. Unlike
// Publisher a connection failure is an error.
func (f *Factory) Consumer(cfg *config.Config) (*amqp.Client, error) {
	if !cfg.MessagingEnabled() {
		return nil, fmt.Errorf("AMQP_URL is required for the worker")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	return client, nil
}
