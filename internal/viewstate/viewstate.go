// Package viewstate reconciles server content into client-facing view state.
// Stores guard their state with a mutex; racing fetches are not cancelled, the
// last one to complete overwrites the state.
package viewstate

import (
	"context"
	"time"

	"astramentor/internal/models"
)

// ContentClient is the slice of the content API the stores consume.
type ContentClient interface {
	ListPosts(ctx context.Context) ([]*models.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error)
	SearchPosts(ctx context.Context, query string) ([]*models.Post, error)
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	ListComments(ctx context.Context, postID uint) ([]*models.Comment, error)
	CreateComment(ctx context.Context, postID uint, content string) (*models.Comment, error)
	DeletePost(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID uint) (*models.Post, error)
}

// Notice is a transient user-facing message with an expiry.
type Notice struct {
	Message   string
	ExpiresAt time.Time
}

// Active reports whether the notice should still be shown.
func (n Notice) Active(now time.Time) bool {
	return n.Message != "" && now.Before(n.ExpiresAt)
}
