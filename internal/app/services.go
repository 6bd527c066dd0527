// Package app assembles the subscription and pinning services shared by the
// api, cron-worker and subscribectl binaries.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/newsapi-backend/internal/entitlements"
	"github.com/angelmondragon/newsapi-backend/internal/history"
	"github.com/angelmondragon/newsapi-backend/internal/pins"
	"github.com/angelmondragon/newsapi-backend/internal/plans"
	"github.com/angelmondragon/newsapi-backend/internal/posts"
	"github.com/angelmondragon/newsapi-backend/internal/subscriptions"
	"github.com/angelmondragon/newsapi-backend/pkg/config"
	"github.com/angelmondragon/newsapi-backend/pkg/db"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/metrics"
)

type ServicesParams struct {
	DB         *db.Client
	Config     config.SubscriptionsConfig
	Logger     *logger.Logger
	Registerer prometheus.Registerer
}

type Services struct {
	Plans         plans.Service
	Subscriptions subscriptions.Service
	History       history.Recorder
	Gate          entitlements.Gate
	Pins          pins.Service
	Metrics       *metrics.SubscriptionMetrics
}

func NewServices(params ServicesParams) (*Services, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	conn := params.DB.DB()
	subMetrics := metrics.NewSubscriptionMetrics(params.Registerer)

	planSvc, err := plans.NewService(plans.ServiceParams{
		Repo:     plans.NewRepository(conn),
		CacheTTL: params.Config.PlanCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("plan catalog: %w", err)
	}

	recorder, err := history.NewRecorder(history.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("history recorder: %w", err)
	}

	subSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(conn),
		Plans:             planSvc,
		History:           recorder,
		TransactionRunner: params.DB,
		Metrics:           subMetrics,
		Logger:            params.Logger,
		TransitionRetries: params.Config.TransitionRetries,
		SweepBatchSize:    params.Config.SweepBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription ledger: %w", err)
	}

	gate, err := entitlements.NewGate(subSvc, planSvc)
	if err != nil {
		return nil, fmt.Errorf("entitlement gate: %w", err)
	}

	pinSvc, err := pins.NewService(pins.ServiceParams{
		Repo:              pins.NewRepository(conn),
		Posts:             posts.NewRepository(conn),
		Gate:              gate,
		TransactionRunner: params.DB,
		Metrics:           subMetrics,
		Logger:            params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pin registry: %w", err)
	}

	return &Services{
		Plans:         planSvc,
		Subscriptions: subSvc,
		History:       recorder,
		Gate:          gate,
		Pins:          pinSvc,
		Metrics:       subMetrics,
	}, nil
}
