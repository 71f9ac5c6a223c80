// Package sheets defines the report export port and its adapters.
package sheets

import (
	"context"
	"errors"
	"time"

	"ceycent/internal/core"
)

// ErrExportDisabled is returned when no spreadsheet is configured.
var ErrExportDisabled = errors.New("report export is not configured")

// ExportResult describes where a report was written.
type ExportResult struct {
	SheetTitle string
	Range      string
	Rows       int
}

// ReportExporter writes a monthly report to an external spreadsheet.
type ReportExporter interface {
	ExportReport(ctx context.Context, r core.MonthReport, loc *time.Location) (ExportResult, error)
}

// Disabled is the exporter used when export is not configured.
type Disabled struct{}

func (Disabled) ExportReport(context.Context, core.MonthReport, *time.Location) (ExportResult, error) {
	return ExportResult{}, ErrExportDisabled
}
