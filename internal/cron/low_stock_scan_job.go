package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockdesk-backend/internal/alerts"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

type alertScanner interface {
	ScanAll(ctx context.Context) (alerts.ScanResult, error)
}

// NewLowStockScanJob re-evaluates alerts for every active product. It catches
// threshold edits and drift that no stock transition reported.
func NewLowStockScanJob(logg *logger.Logger, scanner alertScanner) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if scanner == nil {
		return nil, fmt.Errorf("alert scanner required")
	}
	return &lowStockScanJob{logg: logg, scanner: scanner}, nil
}

type lowStockScanJob struct {
	logg    *logger.Logger
	scanner alertScanner
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

func (j *lowStockScanJob) Run(ctx context.Context) error {
	result, err := j.scanner.ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("scan stock alerts: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"tenants":  result.Tenants,
		"products": result.Products,
		"opened":   result.Opened,
		"resolved": result.Resolved,
	}), "low stock scan complete")
	return nil
}
