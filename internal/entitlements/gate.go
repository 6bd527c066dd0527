// Package entitlements answers whether a user may use a plan feature right now.
package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	"github.com/google/uuid"
)

// Reasons a feature is denied.
const (
	ReasonNoSubscription      = "no_subscription"
	ReasonSubscriptionPending = "subscription_not_active"
	ReasonFeatureNotIncluded  = "feature_not_in_plan"
	ReasonUnknownFeature      = "unknown_feature"
)

type currentSubscriptions interface {
	Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Now() time.Time
}

type planCatalog interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	HasFeature(plan models.Plan, feature enums.Feature) bool
}

// Decision is the outcome of an entitlement check. Subscription is the row the
// decision was based on, nil when the user has none.
type Decision struct {
	Allowed      bool
	Reason       string
	Subscription *models.Subscription
}

// Gate is a read-only composition of the ledger and the plan catalog.
type Gate interface {
	CanUseFeature(ctx context.Context, userID uuid.UUID, feature enums.Feature) (bool, error)
	Check(ctx context.Context, userID uuid.UUID, feature enums.Feature) (Decision, error)
}

type gate struct {
	subs  currentSubscriptions
	plans planCatalog
}

// NewGate builds an entitlement gate.
func NewGate(subs currentSubscriptions, plans planCatalog) (Gate, error) {
	if subs == nil {
		return nil, fmt.Errorf("subscription ledger required")
	}
	if plans == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	return &gate{subs: subs, plans: plans}, nil
}

func (g *gate) CanUseFeature(ctx context.Context, userID uuid.UUID, feature enums.Feature) (bool, error) {
	decision, err := g.Check(ctx, userID, feature)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// Check grants a feature only when the current subscription is active inside
// its window and its plan carries the feature.
func (g *gate) Check(ctx context.Context, userID uuid.UUID, feature enums.Feature) (Decision, error) {
	if !feature.IsValid() {
		return Decision{Reason: ReasonUnknownFeature}, nil
	}

	sub, err := g.subs.Current(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if sub == nil {
		return Decision{Reason: ReasonNoSubscription}, nil
	}
	if !sub.IsCurrentlyActive(g.subs.Now()) {
		return Decision{Reason: ReasonSubscriptionPending, Subscription: sub}, nil
	}

	plan, err := g.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return Decision{}, err
	}
	if !g.plans.HasFeature(*plan, feature) {
		return Decision{Reason: ReasonFeatureNotIncluded, Subscription: sub}, nil
	}
	return Decision{Allowed: true, Subscription: sub}, nil
}
