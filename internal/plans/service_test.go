package plans

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubRepo struct {
	plans     map[uuid.UUID]models.Plan
	order     []uuid.UUID
	findCalls int
	listCalls int
	err       error
}

func newStubRepo(plans ...models.Plan) *stubRepo {
	r := &stubRepo{plans: map[uuid.UUID]models.Plan{}}
	for _, p := range plans {
		r.plans[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, plan *models.Plan) error {
	if r.err != nil {
		return r.err
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	r.plans[plan.ID] = *plan
	r.order = append(r.order, plan.ID)
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	r.findCalls++
	if r.err != nil {
		return nil, r.err
	}
	plan, ok := r.plans[id]
	if !ok {
		return nil, nil
	}
	plan.Features = maps.Clone(plan.Features)
	return &plan, nil
}

func (r *stubRepo) List(ctx context.Context, params ListQuery) ([]models.Plan, error) {
	r.listCalls++
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Plan
	for _, id := range r.order {
		plan := r.plans[id]
		if params.ActiveOnly && !plan.IsActive {
			continue
		}
		plan.Features = maps.Clone(plan.Features)
		out = append(out, plan)
	}
	return out, nil
}

func (r *stubRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	plan, ok := r.plans[id]
	if !ok {
		return false, nil
	}
	plan.IsActive = active
	r.plans[id] = plan
	return true, nil
}

func basicPlan() models.Plan {
	return models.Plan{
		ID:           uuid.New(),
		Name:         "Basic",
		Price:        decimal.RequireFromString("5.99"),
		DurationDays: 30,
		Features:     datatypes.JSONMap{"posts": float64(10), "pin_posts": false},
		IsActive:     true,
	}
}

func premiumPlan() models.Plan {
	return models.Plan{
		ID:           uuid.New(),
		Name:         "Premium",
		Price:        decimal.RequireFromString("9.99"),
		DurationDays: 30,
		Features:     datatypes.JSONMap{"posts": "unlimited", "pin_posts": true},
		IsActive:     true,
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing repo error")
	}
	if _, err := NewService(ServiceParams{Repo: newStubRepo(), CacheTTL: -time.Second}); err == nil {
		t.Fatal("expected negative ttl error")
	}
}

func TestGetPlan(t *testing.T) {
	premium := premiumPlan()
	premium.IsActive = false
	svc, err := NewService(ServiceParams{Repo: newStubRepo(premium)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetPlan(context.Background(), premium.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Premium" {
		t.Fatalf("expected inactive plan to still resolve, got %+v", got)
	}

	_, err = svc.GetPlan(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetPlanWrapsStorageErrors(t *testing.T) {
	repo := newStubRepo()
	repo.err = errors.New("db down")
	svc, _ := NewService(ServiceParams{Repo: repo})

	_, err := svc.GetPlan(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestListActivePlansUsesCacheUntilMutation(t *testing.T) {
	basic, premium := basicPlan(), premiumPlan()
	repo := newStubRepo(basic, premium)
	svc, _ := NewService(ServiceParams{Repo: repo, CacheTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		plans, err := svc.ListActivePlans(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(plans) != 2 || plans[0].Name != "Basic" || plans[1].Name != "Premium" {
			t.Fatalf("unexpected plans %+v", plans)
		}
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repo list call, got %d", repo.listCalls)
	}

	if _, err := svc.DeactivatePlan(ctx, basic.ID); err != nil {
		t.Fatalf("unexpected deactivate error: %v", err)
	}

	plans, err := svc.ListActivePlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != premium.ID {
		t.Fatalf("expected only premium after deactivation, got %+v", plans)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected cache invalidation to force a reload, got %d calls", repo.listCalls)
	}
}

func TestGetPlanCaches(t *testing.T) {
	premium := premiumPlan()
	repo := newStubRepo(premium)
	svc, _ := NewService(ServiceParams{Repo: repo, CacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := svc.GetPlan(context.Background(), premium.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.findCalls != 1 {
		t.Fatalf("expected one repo lookup, got %d", repo.findCalls)
	}
}

func TestCachedPlansAreIsolatedFromCallers(t *testing.T) {
	premium := premiumPlan()
	repo := newStubRepo(premium)
	svc, _ := NewService(ServiceParams{Repo: repo, CacheTTL: time.Minute})
	ctx := context.Background()

	first, err := svc.GetPlan(ctx, premium.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Features["pin_posts"] = false

	cached, err := svc.GetPlan(ctx, premium.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.HasFeature(*cached, enums.FeaturePinPosts) {
		t.Fatal("mutating a returned plan must not change the cached copy")
	}
	cached.Features["pin_posts"] = false

	again, _ := svc.GetPlan(ctx, premium.ID)
	if !svc.HasFeature(*again, enums.FeaturePinPosts) {
		t.Fatal("mutating a cached read must not change later reads")
	}

	listed, err := svc.ListActivePlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	listed[0].Features["pin_posts"] = false
	relisted, _ := svc.ListActivePlans(ctx)
	if !svc.HasFeature(relisted[0], enums.FeaturePinPosts) {
		t.Fatal("mutating a listed plan must not change the cached list")
	}
	if repo.findCalls != 1 {
		t.Fatalf("expected one repo lookup, got %d", repo.findCalls)
	}
}

func TestDeactivatePlan(t *testing.T) {
	basic := basicPlan()
	svc, _ := NewService(ServiceParams{Repo: newStubRepo(basic), CacheTTL: time.Minute})

	got, err := svc.DeactivatePlan(context.Background(), basic.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected plan to be inactive")
	}

	_, err = svc.DeactivatePlan(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHasFeature(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: newStubRepo()})

	if svc.HasFeature(basicPlan(), enums.FeaturePinPosts) {
		t.Fatal("basic plan must not grant pinning")
	}
	if !svc.HasFeature(premiumPlan(), enums.FeaturePinPosts) {
		t.Fatal("premium plan must grant pinning")
	}

	custom := premiumPlan()
	custom.Features["beta_dashboard"] = true
	if svc.HasFeature(custom, enums.Feature("beta_dashboard")) {
		t.Fatal("unknown features must never be granted")
	}
}

func TestCreatePlan(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(ServiceParams{Repo: repo, CacheTTL: time.Minute})
	ctx := context.Background()

	// prime the cache so creation has something to invalidate
	if _, err := svc.ListActivePlans(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan, err := svc.CreatePlan(ctx, CreatePlanInput{
		Name:         "  Premium ",
		Price:        decimal.RequireFromString("9.99"),
		DurationDays: 30,
		Features:     map[string]any{"pin_posts": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "Premium" || !plan.IsActive {
		t.Fatalf("unexpected plan %+v", plan)
	}

	plans, err := svc.ListActivePlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected new plan to be listed, got %d", len(plans))
	}
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: newStubRepo()})

	cases := map[string]CreatePlanInput{
		"missing name":      {Price: decimal.NewFromInt(1), DurationDays: 30},
		"negative price":    {Name: "x", Price: decimal.NewFromInt(-1), DurationDays: 30},
		"zero duration":     {Name: "x", Price: decimal.NewFromInt(1)},
		"non bool pin flag": {Name: "x", Price: decimal.NewFromInt(1), DurationDays: 30, Features: map[string]any{"pin_posts": "yes"}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePlan(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
