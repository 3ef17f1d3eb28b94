package viewstate

import (
	"context"
	"sync"

	"astramentor/internal/models"
)

// DetailSnapshot is an immutable view of a single post's detail state.
type DetailSnapshot struct {
	Post     *models.Post
	Comments []*models.Comment
	Loading  bool
	Err      error
}

// DetailStore holds one post's detail view: the post itself, its comment
// thread, and the viewer's like state. Comment submission waits for the
// server: the thread only ever shows rows the server has accepted.
type DetailStore struct {
	client ContentClient
	postID uint

	mu       sync.Mutex
	post     *models.Post
	comments []*models.Comment
	loading  int
	err      error
}

// NewDetailStore returns a DetailStore for one post.
func NewDetailStore(client ContentClient, postID uint) *DetailStore {
	return &DetailStore{client: client, postID: postID}
}

// Snapshot returns the current detail view.
func (s *DetailStore) Snapshot() DetailSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DetailSnapshot{
		Post:     s.post,
		Comments: append([]*models.Comment(nil), s.comments...),
		Loading:  s.loading > 0,
		Err:      s.err,
	}
}

// Load fetches the post and its comments. Racing loads are not cancelled; the
// last one to complete wins.
func (s *DetailStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	post, err := s.client.GetPost(ctx, s.postID)
	var comments []*models.Comment
	if err == nil {
		comments, err = s.client.ListComments(ctx, s.postID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading > 0 {
		s.loading--
	}
	s.err = err
	if err != nil {
		return err
	}
	s.post = post
	s.comments = comments
	return nil
}

// AddComment submits the comment and, once the server accepts it, appends the
// server-returned row and bumps the displayed count by exactly one. A rejected
// comment never appears in the thread.
func (s *DetailStore) AddComment(ctx context.Context, content string) (*models.Comment, error) {
	created, err := s.client.CreateComment(ctx, s.postID, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, created)
	if s.post != nil {
		s.post.CommentsCount++
	}
	return created, nil
}

// ToggleLike flips the viewer's like and adjusts the count immediately, then
// reconciles with the server's post. If the server call fails the local flip
// is kept; the next Load straightens it out.
func (s *DetailStore) ToggleLike(ctx context.Context) {
	s.mu.Lock()
	if s.post != nil {
		if s.post.Liked {
			s.post.Liked = false
			if s.post.LikesCount > 0 {
				s.post.LikesCount--
			}
		} else {
			s.post.Liked = true
			s.post.LikesCount++
		}
	}
	s.mu.Unlock()

	updated, err := s.client.ToggleLike(ctx, s.postID)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.post = updated
	s.mu.Unlock()
}
