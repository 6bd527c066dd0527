package subscribe

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/newsapi-backend/api/responses"
	"github.com/angelmondragon/newsapi-backend/api/validators"
	"github.com/angelmondragon/newsapi-backend/internal/pins"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/types"
)

// PinPost pins one of the caller's posts. Ownership and entitlement denials are
// reported as 400 so older clients keep working; the reason stays in details.
func PinPost(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var req pinRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pin, err := svc.Pin(r.Context(), userID, req.PostID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, asBadRequest(err))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPinResponse(*pin))
	}
}

func asBadRequest(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	switch typed.Code() {
	case pkgerrors.CodeForbidden, pkgerrors.CodeEntitlement:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, typed.Message()).WithDetails(typed.Details())
	}
	return err
}

// GetPinnedPost returns the caller's pin.
func GetPinnedPost(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		pin, err := svc.GetPinned(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pin == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no pinned post"))
			return
		}
		responses.WriteSuccess(w, newPinResponse(*pin))
	}
}

// DeletePinnedPost removes the caller's pin; 404 when nothing is pinned.
func DeletePinnedPost(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Unpin(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// UnpinPost removes the caller's pin and succeeds even if none existed.
func UnpinPost(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		err := svc.Unpin(r.Context(), userID)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unpinResponse{Unpinned: err == nil})
	}
}

// CanPin reports whether the caller could pin the post right now.
func CanPin(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		// unparsable ids fall through as 0 and come back as invalid_post
		postID, _ := strconv.ParseInt(chi.URLParam(r, "post_id"), 10, 64)
		eligibility, err := svc.CanPin(r.Context(), userID, postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, canPinResponse{CanPin: eligibility.Allowed, Reason: eligibility.Reason})
	}
}

// ListPinnedPosts is the public feed of pins, newest first.
func ListPinnedPosts(svc pins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPinned(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		results := make([]pinResponse, 0, len(page.Pins))
		for _, pin := range page.Pins {
			results = append(results, newPinResponse(pin))
		}
		responses.WriteSuccess(w, types.Page[pinResponse]{Results: results, NextCursor: page.NextCursor})
	}
}
