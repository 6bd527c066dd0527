// Package posts reads the blog's posts table. Posts are owned by the content
// service; nothing here writes to them.
package posts

import (
	"context"

	"github.com/angelmondragon/newsapi-backend/internal/repo"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository resolves posts for ownership checks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id int64) (*models.Post, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a read-only post repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	return repo.First[models.Post](r.DB(ctx).Where("id = ?", id))
}
