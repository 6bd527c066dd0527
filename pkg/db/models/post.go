package models

import (
	"time"

	"github.com/google/uuid"
)

// Post mirrors the columns of the blog's posts table that this service reads.
// The table is owned by the content service and never written from here.
type Post struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null;index"`
	Title     string    `gorm:"column:title;not null"`
	Slug      string    `gorm:"column:slug"`
	CreatedAt time.Time `gorm:"column:created_at"`
}
