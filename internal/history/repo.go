package history

import (
	"context"

	"github.com/angelmondragon/newsapi-backend/internal/repo"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists audit entries. There is deliberately no update or delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.SubscriptionHistory) error
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error)
	ListByUser(ctx context.Context, params ListByUserQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error)
}

// ListByUserQuery pages through a user's trail oldest first.
type ListByUserQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.SubscriptionHistory) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	var entries []models.SubscriptionHistory
	if err := r.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByUser(ctx context.Context, params ListByUserQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.DB(ctx).Model(&models.SubscriptionHistory{}).Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where(
			"(created_at > ?) OR (created_at = ? AND id > ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var entries []models.SubscriptionHistory
	if err := query.Order("created_at ASC, id ASC").Limit(pagination.FetchSize(limit)).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	entries, next := pagination.SplitPage(entries, limit, func(e models.SubscriptionHistory) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return entries, next, nil
}
