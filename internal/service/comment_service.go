package service

import (
	"context"
	"log/slog"
	"strings"

	"astramentor/internal/middleware"
	"astramentor/internal/models"
	"astramentor/internal/observability"
	"astramentor/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		profileRepo: profileRepo,
	}
}

const maxCommentLen = 10000

// CreateComment verifies the author and post exist, inserts the comment, then
// bumps the post's denormalized comment counter. The counter update is
// best-effort: a failure there is logged and counted but never rolls back the
// already-inserted comment, so the counter may lag the true count.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	if _, err := s.profileRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content:  in.Content,
		AuthorID: in.UserID,
		PostID:   in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, in.PostID); err != nil {
		observability.CommentCounterFailures.Inc()
		middleware.Logger.WarnContext(ctx, "comment count increment failed, counter may drift",
			slog.Any("post_id", in.PostID),
			slog.Any("comment_id", comment.ID),
			slog.String("error", err.Error()),
		)
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

// CommentCountDrift returns the difference between the true comment count and
// the post's stored counter. Positive drift means the stored counter undercounts.
func (s *CommentService) CommentCountDrift(ctx context.Context, postID uint) (int64, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return 0, err
	}
	actual, err := s.commentRepo.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	return actual - int64(post.CommentsCount), nil
}
