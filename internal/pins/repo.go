package pins

import (
	"context"

	"github.com/angelmondragon/newsapi-backend/internal/repo"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists pins. The unique index on user_id is the source of the
// one-pin-per-user guarantee; Create surfaces its violation unchanged.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pin *models.PinnedPost) error
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.PinnedPost, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (bool, error)
	List(ctx context.Context, params ListQuery) ([]models.PinnedPost, *pagination.Cursor, error)
}

// ListQuery pages through every pin, newest first.
type ListQuery struct {
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a pin repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, pin *models.PinnedPost) error {
	return r.DB(ctx).Omit("Post").Create(pin).Error
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.PinnedPost, error) {
	return repo.First[models.PinnedPost](r.DB(ctx).Preload("Post").Where("user_id = ?", userID))
}

// DeleteByUser removes the user's pin and reports whether one existed.
func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("user_id = ?", userID).Delete(&models.PinnedPost{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.PinnedPost, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.DB(ctx).Model(&models.PinnedPost{}).Preload("Post")
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var pins []models.PinnedPost
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchSize(limit)).Find(&pins).Error; err != nil {
		return nil, nil, err
	}

	pins, next := pagination.SplitPage(pins, limit, func(p models.PinnedPost) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return pins, next, nil
}
