package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"astramentor/internal/models"
	"astramentor/internal/repository"
	"astramentor/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockCommentRepository is a mock of the CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

func newCommentTestServer(comments *MockCommentRepository, posts *MockPostRepository, profiles *MockProfileRepository) *Server {
	s := &Server{
		commentRepo: comments,
		postRepo:    posts,
		profileRepo: profiles,
	}
	s.commentService = service.NewCommentService(comments, posts, profiles)
	return s
}

func TestCreateComment(t *testing.T) {
	app := fiber.New()
	mockComments := new(MockCommentRepository)
	mockPosts := new(MockPostRepository)
	mockProfiles := new(MockProfileRepository)
	s := newCommentTestServer(mockComments, mockPosts, mockProfiles)

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(3))
		return c.Next()
	})
	app.Post("/posts/:id/comments", s.CreateComment)

	t.Run("success", func(t *testing.T) {
		mockProfiles.On("GetByID", mock.Anything, uint(3)).
			Return(&models.Profile{ID: 3, Role: models.RoleStudent}, nil).Once()
		mockPosts.On("GetByID", mock.Anything, uint(7), uint(0)).
			Return(&models.Post{ID: 7, CommentsCount: 1}, nil)
		mockComments.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Comment).ID = 11
			}).Return(nil).Once()
		mockPosts.On("IncrementCommentCount", mock.Anything, uint(7)).Return(nil).Once()
		mockComments.On("GetByID", mock.Anything, uint(11)).
			Return(&models.Comment{ID: 11, PostID: 7, AuthorID: 3, Content: "Great explanation"}, nil).Once()

		body, _ := json.Marshal(map[string]string{"content": "Great explanation"})
		req := httptest.NewRequest(http.MethodPost, "/posts/7/comments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created models.Comment
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, uint(11), created.ID)
	})

	t.Run("empty content", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"content": ""})
		req := httptest.NewRequest(http.MethodPost, "/posts/7/comments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing post", func(t *testing.T) {
		mockProfiles.On("GetByID", mock.Anything, uint(3)).
			Return(&models.Profile{ID: 3}, nil).Once()
		mockPosts.On("GetByID", mock.Anything, uint(99), uint(0)).
			Return(nil, models.NewNotFoundError("Post", 99)).Once()

		body, _ := json.Marshal(map[string]string{"content": "Hello?"})
		req := httptest.NewRequest(http.MethodPost, "/posts/99/comments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// Runs the handler against real repositories over an in-memory database, so
// the not-found translation is exercised end to end instead of being stubbed.
func TestCreateComment_MissingPostAgainstRealStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.Post{}, &models.Comment{}, &models.Like{}))

	student := &models.Profile{Name: "Sam Reader", Email: "sam@school.edu", Password: "hash", Role: models.RoleStudent}
	require.NoError(t, db.Create(student).Error)

	commentRepo := repository.NewCommentRepository(db)
	postRepo := repository.NewPostRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	s := &Server{commentRepo: commentRepo, postRepo: postRepo, profileRepo: profileRepo}
	s.commentService = service.NewCommentService(commentRepo, postRepo, profileRepo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", student.ID)
		return c.Next()
	})
	app.Post("/posts/:id/comments", s.CreateComment)

	body, _ := json.Marshal(map[string]string{"content": "Hello?"})
	req := httptest.NewRequest(http.MethodPost, "/posts/9999/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, models.CodeNotFound, errResp.Code)

	var orphans int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&orphans).Error)
	assert.Zero(t, orphans, "no comment row may be written for a missing post")
}

func TestGetComments(t *testing.T) {
	app := fiber.New()
	mockComments := new(MockCommentRepository)
	mockPosts := new(MockPostRepository)
	s := newCommentTestServer(mockComments, mockPosts, new(MockProfileRepository))
	app.Get("/posts/:id/comments", s.GetComments)

	mockPosts.On("GetByID", mock.Anything, uint(7), uint(0)).
		Return(&models.Post{ID: 7}, nil).Once()
	mockComments.On("ListByPost", mock.Anything, uint(7)).
		Return([]*models.Comment{
			{ID: 1, Content: "First"},
			{ID: 2, Content: "Second"},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/posts/7/comments", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var comments []models.Comment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&comments))
	require.Len(t, comments, 2)
	assert.Equal(t, "First", comments[0].Content)
}
