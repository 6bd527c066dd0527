package plans

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	activePlansKey = "plans:active"
	planKeyPrefix  = "plan:"
)

// Service is the plan catalog. Reads are served from an in-process cache that
// every mutation invalidates.
type Service interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
	HasFeature(plan models.Plan, feature enums.Feature) bool
	CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error)
	DeactivatePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

// ServiceParams groups dependencies for the plan catalog.
type ServiceParams struct {
	Repo     Repository
	CacheTTL time.Duration
}

// CreatePlanInput captures an administrator's plan definition.
type CreatePlanInput struct {
	Name           string
	Description    string
	Price          decimal.Decimal
	DurationDays   int
	Features       map[string]any
	BillingPriceID *string
}

type service struct {
	repo  Repository
	cache *cache.Cache
}

// NewService builds the plan catalog. A zero CacheTTL disables caching.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("plan repo required")
	}
	if params.CacheTTL < 0 {
		return nil, fmt.Errorf("plan cache ttl must not be negative")
	}
	svc := &service{repo: params.Repo}
	if params.CacheTTL > 0 {
		svc.cache = cache.New(params.CacheTTL, 2*params.CacheTTL)
	}
	return svc, nil
}

// GetPlan returns the plan whether or not it is active; existing subscriptions
// keep resolving plans that were deactivated after they were sold.
func (s *service) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	key := planKeyPrefix + id.String()
	if cached, ok := s.cacheGet(key); ok {
		plan := clonePlan(cached.(models.Plan))
		return &plan, nil
	}

	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	s.cacheSet(key, clonePlan(*plan))
	return plan, nil
}

func (s *service) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	if cached, ok := s.cacheGet(activePlansKey); ok {
		return clonePlans(cached.([]models.Plan)), nil
	}

	plans, err := s.repo.List(ctx, ListQuery{ActiveOnly: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active plans")
	}
	s.cacheSet(activePlansKey, clonePlans(plans))
	return plans, nil
}

func (s *service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.repo.List(ctx, ListQuery{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

// HasFeature only answers for known features; anything outside the enum is
// denied even if the plan's map carries the key.
func (s *service) HasFeature(plan models.Plan, feature enums.Feature) bool {
	if !feature.IsValid() {
		return false
	}
	return plan.FeatureEnabled(feature.String())
}

func (s *service) CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	if err := validateCreatePlan(input); err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		DurationDays:   input.DurationDays,
		Features:       input.Features,
		IsActive:       true,
		BillingPriceID: input.BillingPriceID,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	s.invalidate(plan.ID)
	return plan, nil
}

// DeactivatePlan hides the plan from the catalog. Subscriptions that already
// reference it are untouched.
func (s *service) DeactivatePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	found, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate plan")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	s.invalidate(id)
	return s.GetPlan(ctx, id)
}

func validateCreatePlan(input CreatePlanInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "required"
	}
	if input.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if input.DurationDays <= 0 {
		fields["duration_days"] = "must be positive"
	}
	for _, feature := range enums.Features() {
		value, ok := input.Features[feature.String()]
		if !ok {
			continue
		}
		if _, isBool := value.(bool); !isBool {
			fields["features."+feature.String()] = "must be a boolean"
		}
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan").WithDetails(fields)
	}
	return nil
}

func (s *service) cacheGet(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *service) cacheSet(key string, value any) {
	if s.cache == nil {
		return
	}
	s.cache.Set(key, value, cache.DefaultExpiration)
}

func (s *service) invalidate(id uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(activePlansKey)
	s.cache.Delete(planKeyPrefix + id.String())
}

func clonePlans(in []models.Plan) []models.Plan {
	if in == nil {
		return nil
	}
	out := make([]models.Plan, len(in))
	for i, plan := range in {
		out[i] = clonePlan(plan)
	}
	return out
}

// clonePlan copies the Features map so cached plans never share it with callers.
func clonePlan(plan models.Plan) models.Plan {
	if plan.Features != nil {
		plan.Features = maps.Clone(plan.Features)
	}
	return plan
}
