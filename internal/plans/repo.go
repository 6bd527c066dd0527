package plans

import (
	"context"

	"github.com/angelmondragon/newsapi-backend/internal/repo"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles plan persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	List(ctx context.Context, params ListQuery) ([]models.Plan, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

// ListQuery filters plan listings.
type ListQuery struct {
	ActiveOnly bool
}

type repository struct {
	repo.Base
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, plan *models.Plan) error {
	return r.DB(ctx).Create(plan).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return repo.First[models.Plan](r.DB(ctx).Where("id = ?", id))
}

// List returns plans in insertion order; id breaks ties so the order is stable.
func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Plan, error) {
	query := r.DB(ctx).Model(&models.Plan{})
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var plans []models.Plan
	if err := query.Order("created_at ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// SetActive toggles is_active and reports whether a row matched.
func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Plan{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
