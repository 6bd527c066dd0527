package subscriptions

import (
	"context"
	"time"

	"github.com/angelmondragon/newsapi-backend/internal/repo"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles subscription persistence. Status changes only go through
// TransitionStatus so every write is conditioned on the status that was read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindCurrent(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error)
	FindLatest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	HasActive(ctx context.Context, userID uuid.UUID, excludeID uuid.UUID, now time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.DB(ctx).Omit("Plan").Create(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return repo.First[models.Subscription](r.DB(ctx).Preload("Plan").Where("id = ?", id))
}

// FindCurrent is the single definition of a user's current subscription: the
// newest pending or active row whose window has not closed.
func (r *repository) FindCurrent(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	return repo.First[models.Subscription](r.DB(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Where("status IN ?", enums.LiveSubscriptionStatuses).
		Where("end_date > ?", now).
		Order("created_at DESC, id DESC"))
}

func (r *repository) FindLatest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return repo.First[models.Subscription](r.DB(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC"))
}

// HasActive reports whether the user holds a currently active subscription
// other than excludeID.
func (r *repository) HasActive(ctx context.Context, userID uuid.UUID, excludeID uuid.UUID, now time.Time) (bool, error) {
	query := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Where("status = ?", enums.SubscriptionStatusActive).
		Where("start_date <= ? AND end_date > ?", now, now)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.DB(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListExpirable returns live rows whose window closed at or before now, oldest
// end first.
func (r *repository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	if limit <= 0 {
		limit = 500
	}
	var subs []models.Subscription
	if err := r.DB(ctx).
		Where("status IN ?", enums.LiveSubscriptionStatuses).
		Where("end_date <= ?", now).
		Order("end_date ASC, id ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// TransitionStatus moves id from one status to another and reports false when
// the row no longer holds from.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
