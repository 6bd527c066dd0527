package history

import (
	"context"
	"fmt"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder appends and reads the subscription audit trail. Record is meant to
// run inside the caller's transaction via WithTx so an entry exists exactly
// when its transition commits.
type Recorder interface {
	WithTx(tx *gorm.DB) Recorder
	Record(ctx context.Context, sub models.Subscription, action enums.HistoryAction, description string) (*models.SubscriptionHistory, error)
	ListFor(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (Page, error)
}

// Page is one slice of a user's trail. NextCursor is empty on the last page.
type Page struct {
	Entries    []models.SubscriptionHistory
	NextCursor string
}

type recorder struct {
	repo Repository
}

// NewRecorder builds the history recorder.
func NewRecorder(repo Repository) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repo required")
	}
	return &recorder{repo: repo}, nil
}

func (r *recorder) WithTx(tx *gorm.DB) Recorder {
	return &recorder{repo: r.repo.WithTx(tx)}
}

func (r *recorder) Record(ctx context.Context, sub models.Subscription, action enums.HistoryAction, description string) (*models.SubscriptionHistory, error) {
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown history action %q", action))
	}
	if sub.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "history entry requires a persisted subscription")
	}

	entry := &models.SubscriptionHistory{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Action:         action,
		Description:    description,
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record subscription history")
	}
	return entry, nil
}

func (r *recorder) ListFor(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	entries, err := r.repo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	return entries, nil
}

func (r *recorder) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, next, err := r.repo.ListByUser(ctx, ListByUserQuery{
		UserID: userID,
		Limit:  params.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user history")
	}

	page := Page{Entries: entries}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}
