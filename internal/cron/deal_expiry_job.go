package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

type dealExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// NewDealExpiryJob moves active deals whose window has closed to expired.
func NewDealExpiryJob(logg *logger.Logger, deals dealExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deals == nil {
		return nil, fmt.Errorf("deal service required")
	}
	return &dealExpiryJob{logg: logg, deals: deals}, nil
}

type dealExpiryJob struct {
	logg  *logger.Logger
	deals dealExpirer
}

func (j *dealExpiryJob) Name() string { return "deal-expiry" }

func (j *dealExpiryJob) Run(ctx context.Context) error {
	expired, err := j.deals.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("expire due deals: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "deals_expired", expired), "expired due deals")
	}
	return nil
}
