package viewstate

import (
	"context"
	"sync"
	"time"

	"astramentor/internal/models"
)

// ListSnapshot is an immutable view of the post list state.
type ListSnapshot struct {
	Posts   []*models.Post
	Loading bool
	Query   string
	Err     error
	Notice  string
}

// ListStore holds the post list view. Refreshes and searches run without
// cancellation; when they race, the last fetch to complete wins.
type ListStore struct {
	client ContentClient

	mu      sync.Mutex
	posts   []*models.Post
	loading int
	query   string
	err     error
	notice  Notice
	now     func() time.Time
}

// NewListStore returns an empty ListStore backed by the given client.
func NewListStore(client ContentClient) *ListStore {
	return &ListStore{client: client, now: time.Now}
}

// Snapshot returns the current list view.
func (s *ListStore) Snapshot() ListSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := ListSnapshot{
		Posts:   append([]*models.Post(nil), s.posts...),
		Loading: s.loading > 0,
		Query:   s.query,
		Err:     s.err,
	}
	if s.notice.Active(s.now()) {
		snap.Notice = s.notice.Message
	}
	return snap
}

// Refresh reloads the full post list.
func (s *ListStore) Refresh(ctx context.Context) error {
	s.begin("")
	posts, err := s.client.ListPosts(ctx)
	s.finish(posts, err)
	return err
}

// RefreshAuthor reloads the list scoped to one author's posts, for the
// own-posts screen.
func (s *ListStore) RefreshAuthor(ctx context.Context, authorID uint) error {
	s.begin("")
	posts, err := s.client.ListPostsByAuthor(ctx, authorID)
	s.finish(posts, err)
	return err
}

// Search loads posts matching the query. An empty query behaves like Refresh.
func (s *ListStore) Search(ctx context.Context, query string) error {
	if query == "" {
		return s.Refresh(ctx)
	}
	s.begin(query)
	posts, err := s.client.SearchPosts(ctx, query)
	s.finish(posts, err)
	return err
}

func (s *ListStore) begin(query string) {
	s.mu.Lock()
	s.loading++
	s.query = query
	s.mu.Unlock()
}

// finish applies a fetch result. A failed fetch records the error but keeps
// the previously shown posts on screen.
func (s *ListStore) finish(posts []*models.Post, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading > 0 {
		s.loading--
	}
	s.err = err
	if err == nil {
		s.posts = posts
	}
}

// RemovePost splices a deleted post out of the list without refetching.
func (s *ListStore) RemovePost(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return
		}
	}
}

// Delete removes the post on the server and splices it out locally on success.
func (s *ListStore) Delete(ctx context.Context, id uint) error {
	if err := s.client.DeletePost(ctx, id); err != nil {
		return err
	}
	s.RemovePost(id)
	s.SetNotice("Post deleted", 5*time.Second)
	return nil
}

// SetNotice shows a transient message that expires after ttl.
func (s *ListStore) SetNotice(message string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = Notice{Message: message, ExpiresAt: s.now().Add(ttl)}
}
