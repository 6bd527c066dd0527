package subscribe

import (
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
)

type planResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Price        string         `json:"price"`
	DurationDays int            `json:"duration_days"`
	Features     map[string]any `json:"features"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
}

type subscriptionResponse struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	PlanID            string        `json:"plan_id"`
	Status            string        `json:"status"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           time.Time     `json:"end_date"`
	IsCurrentlyActive bool          `json:"is_currently_active"`
	DaysRemaining     int           `json:"days_remaining"`
	Plan              *planResponse `json:"plan_info,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

type historyResponse struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	Action         string    `json:"action"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

type postSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	AuthorID string `json:"author_id"`
}

type pinResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	PostID    int64        `json:"post_id"`
	Post      *postSummary `json:"post,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type statusResponse struct {
	HasSubscription bool       `json:"has_subscription"`
	IsActive        bool       `json:"is_active"`
	Status          *string    `json:"status"`
	PlanName        *string    `json:"plan_name"`
	EndDate         *time.Time `json:"end_date"`
	DaysRemaining   int        `json:"days_remaining"`
	CanPinPosts     bool       `json:"can_pin_posts"`
	LatestStatus    *string    `json:"latest_status"`
}

type canPinResponse struct {
	CanPin bool   `json:"can_pin"`
	Reason string `json:"reason,omitempty"`
}

type unpinResponse struct {
	Unpinned bool `json:"unpinned"`
}

type subscribeRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type pinRequest struct {
	PostID int64 `json:"post_id" validate:"required,gt=0"`
}

func newPlanResponse(plan models.Plan) planResponse {
	features := map[string]any(plan.Features)
	if features == nil {
		features = map[string]any{}
	}
	return planResponse{
		ID:           plan.ID.String(),
		Name:         plan.Name,
		Description:  plan.Description,
		Price:        plan.Price.StringFixed(2),
		DurationDays: plan.DurationDays,
		Features:     features,
		IsActive:     plan.IsActive,
		CreatedAt:    plan.CreatedAt.UTC(),
	}
}

func newSubscriptionResponse(sub models.Subscription, now time.Time) subscriptionResponse {
	resp := subscriptionResponse{
		ID:                sub.ID.String(),
		UserID:            sub.UserID.String(),
		PlanID:            sub.PlanID.String(),
		Status:            sub.Status.String(),
		StartDate:         sub.StartDate.UTC(),
		EndDate:           sub.EndDate.UTC(),
		IsCurrentlyActive: sub.IsCurrentlyActive(now),
		DaysRemaining:     sub.DaysRemaining(now),
		CreatedAt:         sub.CreatedAt.UTC(),
	}
	if sub.Plan != nil {
		plan := newPlanResponse(*sub.Plan)
		resp.Plan = &plan
	}
	return resp
}

func newHistoryResponse(entry models.SubscriptionHistory) historyResponse {
	return historyResponse{
		ID:             entry.ID.String(),
		SubscriptionID: entry.SubscriptionID.String(),
		Action:         string(entry.Action),
		Description:    entry.Description,
		CreatedAt:      entry.CreatedAt.UTC(),
	}
}

func newPinResponse(pin models.PinnedPost) pinResponse {
	resp := pinResponse{
		ID:        pin.ID.String(),
		UserID:    pin.UserID.String(),
		PostID:    pin.PostID,
		CreatedAt: pin.CreatedAt.UTC(),
	}
	if pin.Post != nil {
		resp.Post = &postSummary{
			ID:       pin.Post.ID,
			Title:    pin.Post.Title,
			Slug:     pin.Post.Slug,
			AuthorID: pin.Post.AuthorID.String(),
		}
	}
	return resp
}
