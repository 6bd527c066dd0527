package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/logger"
)

const expirationSweepJobName = "subscription-expiration-sweep"

type expirationSweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) (int, error)
}

// ExpirationSweepJobParams configures the subscription expiration job.
type ExpirationSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper expirationSweeper
	Now     func() time.Time
}

type expirationSweepJob struct {
	logg    *logger.Logger
	sweeper expirationSweeper
	now     func() time.Time
}

// NewExpirationSweepJob builds the job that persists lapsed subscriptions as expired.
func NewExpirationSweepJob(params ExpirationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &expirationSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		now:     now,
	}, nil
}

func (j *expirationSweepJob) Name() string { return expirationSweepJobName }

func (j *expirationSweepJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	expired, err := j.sweeper.SweepExpirations(ctx, now)
	result := Result{Affected: expired}
	if err != nil {
		return result, fmt.Errorf("sweep expirations: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "subscriptions expired")
	}
	return result, nil
}
