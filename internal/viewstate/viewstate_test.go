package viewstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"astramentor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientStub is a stub ContentClient.
type clientStub struct {
	listPostsFn         func(context.Context) ([]*models.Post, error)
	listPostsByAuthorFn func(context.Context, uint) ([]*models.Post, error)
	searchPostsFn       func(context.Context, string) ([]*models.Post, error)
	getPostFn           func(context.Context, uint) (*models.Post, error)
	listCommentsFn      func(context.Context, uint) ([]*models.Comment, error)
	createCommentFn     func(context.Context, uint, string) (*models.Comment, error)
	deletePostFn        func(context.Context, uint) error
	toggleLikeFn        func(context.Context, uint) (*models.Post, error)
}

func (s *clientStub) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.listPostsFn(ctx)
}
func (s *clientStub) ListPostsByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error) {
	return s.listPostsByAuthorFn(ctx, authorID)
}
func (s *clientStub) SearchPosts(ctx context.Context, query string) ([]*models.Post, error) {
	return s.searchPostsFn(ctx, query)
}
func (s *clientStub) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.getPostFn(ctx, id)
}
func (s *clientStub) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listCommentsFn(ctx, postID)
}
func (s *clientStub) CreateComment(ctx context.Context, postID uint, content string) (*models.Comment, error) {
	return s.createCommentFn(ctx, postID, content)
}
func (s *clientStub) DeletePost(ctx context.Context, id uint) error {
	return s.deletePostFn(ctx, id)
}
func (s *clientStub) ToggleLike(ctx context.Context, postID uint) (*models.Post, error) {
	return s.toggleLikeFn(ctx, postID)
}

func noopClient() *clientStub {
	return &clientStub{
		listPostsFn:         func(_ context.Context) ([]*models.Post, error) { return nil, nil },
		listPostsByAuthorFn: func(_ context.Context, _ uint) ([]*models.Post, error) { return nil, nil },
		searchPostsFn:       func(_ context.Context, _ string) ([]*models.Post, error) { return nil, nil },
		getPostFn:           func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listCommentsFn:      func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		createCommentFn: func(_ context.Context, postID uint, content string) (*models.Comment, error) {
			return &models.Comment{ID: 100, PostID: postID, Content: content}, nil
		},
		deletePostFn: func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
	}
}

func TestListStore_RefreshAuthorScopesToAuthor(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.listPostsByAuthorFn = func(_ context.Context, authorID uint) ([]*models.Post, error) {
		assert.Equal(t, uint(4), authorID)
		return []*models.Post{{ID: 9, AuthorID: authorID, Title: "Mine"}}, nil
	}
	store := NewListStore(client)

	require.NoError(t, store.RefreshAuthor(context.Background(), 4))

	snap := store.Snapshot()
	require.Len(t, snap.Posts, 1)
	assert.Equal(t, "Mine", snap.Posts[0].Title)
}

func TestListStore_Refresh(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		return []*models.Post{{ID: 2, Title: "Newer"}, {ID: 1, Title: "Older"}}, nil
	}
	store := NewListStore(client)

	require.NoError(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	require.Len(t, snap.Posts, 2)
	assert.Equal(t, "Newer", snap.Posts[0].Title)
}

func TestListStore_RefreshFailureKeepsOldPosts(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		return []*models.Post{{ID: 1, Title: "Cached"}}, nil
	}
	store := NewListStore(client)
	require.NoError(t, store.Refresh(context.Background()))

	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		return nil, errors.New("network down")
	}
	require.Error(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	assert.Error(t, snap.Err)
	require.Len(t, snap.Posts, 1, "a failed refresh must not blank the list")
	assert.Equal(t, "Cached", snap.Posts[0].Title)
}

func TestListStore_SearchEmptyQueryFallsBackToRefresh(t *testing.T) {
	t.Parallel()

	listCalled := false
	client := noopClient()
	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		listCalled = true
		return nil, nil
	}
	store := NewListStore(client)

	require.NoError(t, store.Search(context.Background(), ""))
	assert.True(t, listCalled)
}

func TestListStore_LastFetchToFinishWins(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	client := noopClient()
	client.searchPostsFn = func(_ context.Context, query string) ([]*models.Post, error) {
		if query == "slow" {
			close(started)
			<-release
			return []*models.Post{{ID: 1, Title: "Slow Result"}}, nil
		}
		return []*models.Post{{ID: 2, Title: "Fast Result"}}, nil
	}
	store := NewListStore(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.Search(context.Background(), "slow")
	}()

	<-started
	require.NoError(t, store.Search(context.Background(), "fast"))
	close(release)
	wg.Wait()

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	require.Len(t, snap.Posts, 1)
	assert.Equal(t, "Slow Result", snap.Posts[0].Title, "the last fetch to complete owns the list")
}

func TestListStore_DeleteSplicesAndSetsNotice(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		return []*models.Post{{ID: 1}, {ID: 2}, {ID: 3}}, nil
	}
	store := NewListStore(client)
	require.NoError(t, store.Refresh(context.Background()))

	require.NoError(t, store.Delete(context.Background(), 2))

	snap := store.Snapshot()
	require.Len(t, snap.Posts, 2)
	assert.Equal(t, uint(1), snap.Posts[0].ID)
	assert.Equal(t, uint(3), snap.Posts[1].ID)
	assert.Equal(t, "Post deleted", snap.Notice)
}

func TestListStore_DeleteFailureKeepsPost(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.listPostsFn = func(_ context.Context) ([]*models.Post, error) {
		return []*models.Post{{ID: 1}}, nil
	}
	client.deletePostFn = func(_ context.Context, _ uint) error {
		return errors.New("forbidden")
	}
	store := NewListStore(client)
	require.NoError(t, store.Refresh(context.Background()))

	require.Error(t, store.Delete(context.Background(), 1))
	assert.Len(t, store.Snapshot().Posts, 1)
}

func TestListStore_NoticeExpires(t *testing.T) {
	t.Parallel()

	store := NewListStore(noopClient())
	current := time.Now()
	store.now = func() time.Time { return current }

	store.SetNotice("Saved", 5*time.Second)
	assert.Equal(t, "Saved", store.Snapshot().Notice)

	current = current.Add(6 * time.Second)
	assert.Empty(t, store.Snapshot().Notice)
}

func TestDetailStore_Load(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.getPostFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Title: "Lesson", CommentsCount: 2}, nil
	}
	client.listCommentsFn = func(_ context.Context, postID uint) ([]*models.Comment, error) {
		return []*models.Comment{
			{ID: 1, PostID: postID, Content: "First"},
			{ID: 2, PostID: postID, Content: "Second"},
		}, nil
	}
	store := NewDetailStore(client, 7)

	require.NoError(t, store.Load(context.Background()))

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Post)
	assert.Equal(t, "Lesson", snap.Post.Title)
	require.Len(t, snap.Comments, 2)
	assert.Equal(t, "First", snap.Comments[0].Content)
}

func TestDetailStore_AddComment_AppendsOnlyAfterServerConfirms(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	client := noopClient()
	client.createCommentFn = func(_ context.Context, postID uint, content string) (*models.Comment, error) {
		close(started)
		<-release
		return &models.Comment{ID: 55, PostID: postID, Content: content}, nil
	}
	store := NewDetailStore(client, 7)
	store.post = &models.Post{ID: 7, CommentsCount: 0}

	var wg sync.WaitGroup
	var created *models.Comment
	wg.Add(1)
	go func() {
		defer wg.Done()
		created, _ = store.AddComment(context.Background(), "Nice one")
	}()

	// While the server call is in flight the thread shows nothing.
	<-started
	snap := store.Snapshot()
	assert.Empty(t, snap.Comments, "no comment may show before the server accepts it")
	assert.Equal(t, 0, snap.Post.CommentsCount)

	close(release)
	wg.Wait()

	require.NotNil(t, created)
	snap = store.Snapshot()
	require.Len(t, snap.Comments, 1)
	assert.Equal(t, uint(55), snap.Comments[0].ID, "the server-returned row is the one appended")
	assert.Equal(t, 1, snap.Post.CommentsCount)
}

func TestDetailStore_AddComment_RejectedCommentNeverAppears(t *testing.T) {
	t.Parallel()

	client := noopClient()
	client.createCommentFn = func(_ context.Context, _ uint, _ string) (*models.Comment, error) {
		return nil, errors.New("post not found")
	}
	store := NewDetailStore(client, 7)
	store.post = &models.Post{ID: 7, CommentsCount: 3}

	_, err := store.AddComment(context.Background(), "Nice one")
	require.Error(t, err)

	snap := store.Snapshot()
	assert.Empty(t, snap.Comments, "rejected comment must not enter the thread")
	assert.Equal(t, 3, snap.Post.CommentsCount)
}

func TestDetailStore_ToggleLike(t *testing.T) {
	t.Parallel()

	t.Run("reconciles with server post", func(t *testing.T) {
		t.Parallel()
		client := noopClient()
		client.toggleLikeFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Liked: true, LikesCount: 12}, nil
		}
		store := NewDetailStore(client, 7)
		store.post = &models.Post{ID: 7, Liked: false, LikesCount: 11}

		store.ToggleLike(context.Background())

		snap := store.Snapshot()
		assert.True(t, snap.Post.Liked)
		assert.Equal(t, 12, snap.Post.LikesCount)
	})

	t.Run("toggle pair restores the counter", func(t *testing.T) {
		t.Parallel()
		server := &models.Post{ID: 7, Liked: false, LikesCount: 11}
		client := noopClient()
		client.toggleLikeFn = func(_ context.Context, _ uint) (*models.Post, error) {
			if server.Liked {
				server.Liked = false
				server.LikesCount--
			} else {
				server.Liked = true
				server.LikesCount++
			}
			copied := *server
			return &copied, nil
		}
		store := NewDetailStore(client, 7)
		store.post = &models.Post{ID: 7, Liked: false, LikesCount: 11}

		store.ToggleLike(context.Background())
		store.ToggleLike(context.Background())

		snap := store.Snapshot()
		assert.False(t, snap.Post.Liked)
		assert.Equal(t, 11, snap.Post.LikesCount)
	})

	t.Run("keeps local flip when server fails", func(t *testing.T) {
		t.Parallel()
		client := noopClient()
		client.toggleLikeFn = func(_ context.Context, _ uint) (*models.Post, error) {
			return nil, errors.New("network down")
		}
		store := NewDetailStore(client, 7)
		store.post = &models.Post{ID: 7, Liked: false, LikesCount: 11}

		store.ToggleLike(context.Background())

		snap := store.Snapshot()
		assert.True(t, snap.Post.Liked)
		assert.Equal(t, 12, snap.Post.LikesCount)
	})
}
