// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post. The create path currently
// forces "published"; "draft" exists in the schema but has no workflow unless
// the drafts feature flag is enabled.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post represents a piece of content shared by a teacher.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"not null" json:"description"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	ImageURL    string     `json:"image_url"`
	Status      PostStatus `gorm:"not null;default:published" json:"status"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	Author      Profile    `gorm:"foreignKey:AuthorID" json:"author"`
	// CommentsCount is persisted and maintained by a best-effort increment
	// after each comment insert; it may undercount if the increment fails.
	CommentsCount int `gorm:"not null;default:0" json:"comments_count"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
