package subscribe

import (
	"net/http"

	"github.com/angelmondragon/newsapi-backend/api/responses"
	"github.com/angelmondragon/newsapi-backend/api/validators"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/types"
)

// ListPlans returns every active plan.
func ListPlans(svc PlanCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListActivePlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		results := make([]planResponse, 0, len(plans))
		for _, plan := range plans {
			results = append(results, newPlanResponse(plan))
		}
		responses.WriteSuccess(w, types.Page[planResponse]{Results: results})
	}
}

// GetPlan returns one plan; inactive plans are hidden behind a 404.
func GetPlan(svc PlanCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.GetPlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !plan.IsActive {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found"))
			return
		}
		responses.WriteSuccess(w, newPlanResponse(*plan))
	}
}

// AdminDeactivatePlan retires a plan from the public catalog.
func AdminDeactivatePlan(svc PlanCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.DeactivatePlan(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanResponse(*plan))
	}
}
