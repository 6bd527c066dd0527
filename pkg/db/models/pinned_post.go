package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PinnedPost marks the single post a user has elevated. The unique index on
// user_id is what guarantees one pin per user.
type PinnedPost struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:pinned_posts_user_id_key"`
	PostID    int64     `gorm:"column:post_id;not null;index"`
	Post      *Post     `gorm:"foreignKey:PostID;references:ID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *PinnedPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
