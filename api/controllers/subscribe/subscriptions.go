package subscribe

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/newsapi-backend/api/middleware"
	"github.com/angelmondragon/newsapi-backend/api/responses"
	"github.com/angelmondragon/newsapi-backend/api/validators"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/types"
)

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

// Status summarizes the caller's subscription and pinning entitlement.
func Status(ledger Ledger, gate FeatureGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()
		now := ledger.Now()

		current, err := ledger.Current(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		latest, err := ledger.Latest(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		canPin, err := gate.CanUseFeature(ctx, userID, enums.FeaturePinPosts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := statusResponse{CanPinPosts: canPin}
		if current != nil {
			status := current.Status.String()
			end := current.EndDate.UTC()
			resp.HasSubscription = true
			resp.IsActive = current.IsCurrentlyActive(now)
			resp.Status = &status
			resp.EndDate = &end
			resp.DaysRemaining = current.DaysRemaining(now)
			if current.Plan != nil {
				name := current.Plan.Name
				resp.PlanName = &name
			}
		}
		if latest != nil {
			status := latest.Status.String()
			resp.LatestStatus = &status
		}
		responses.WriteSuccess(w, resp)
	}
}

// MySubscription returns the caller's current subscription with its plan.
func MySubscription(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		sub, err := ledger.Current(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no current subscription"))
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(*sub, ledger.Now()))
	}
}

// Subscribe opens a pending subscription on the requested plan.
func Subscribe(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var req subscribeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := uuid.Parse(req.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan_id"))
			return
		}
		sub, err := ledger.Create(r.Context(), userID, planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSubscriptionResponse(*sub, ledger.Now()))
	}
}

// Cancel cancels the caller's current subscription.
func Cancel(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		sub, err := ledger.CancelCurrent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(*sub, ledger.Now()))
	}
}

// History pages through the caller's subscription events, oldest first.
func History(svc HistoryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		results := make([]historyResponse, 0, len(page.Entries))
		for _, entry := range page.Entries {
			results = append(results, newHistoryResponse(entry))
		}
		responses.WriteSuccess(w, types.Page[historyResponse]{Results: results, NextCursor: page.NextCursor})
	}
}

// AdminActivateSubscription confirms payment for a pending subscription.
func AdminActivateSubscription(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := ledger.Activate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(*sub, ledger.Now()))
	}
}
