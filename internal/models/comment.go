// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Comments are append-only: there is
// no edit or delete path in the product.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Content    string         `gorm:"not null" json:"content"`
	AuthorID   uint           `gorm:"not null" json:"author_id"`
	PostID     uint           `gorm:"not null;index" json:"post_id"`
	Author     Profile        `gorm:"foreignKey:AuthorID" json:"author"`
	Post       Post           `gorm:"foreignKey:PostID" json:"post,omitempty"`
	LikesCount int            `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
