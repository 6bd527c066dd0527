package subscribe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/newsapi-backend/internal/history"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
)

// PlanCatalog is the plan surface used by the HTTP controllers.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	DeactivatePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

// Ledger is the subscription surface used by the HTTP controllers.
type Ledger interface {
	Create(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error)
	Activate(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	CancelCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Latest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Now() time.Time
}

// HistoryLister pages through a user's audit trail.
type HistoryLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (history.Page, error)
}

// FeatureGate answers entitlement questions.
type FeatureGate interface {
	CanUseFeature(ctx context.Context, userID uuid.UUID, feature enums.Feature) (bool, error)
}
