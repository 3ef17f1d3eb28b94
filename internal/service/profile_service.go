package service

import (
	"context"

	"astramentor/internal/models"
	"astramentor/internal/repository"
	"astramentor/internal/validation"
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

type UpdateProfileInput struct {
	UserID uint
	Name   string
	Avatar string
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

func (s *ProfileService) ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	return s.profileRepo.List(ctx, limit, offset)
}

func (s *ProfileService) GetProfileByID(ctx context.Context, id uint) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

func (s *ProfileService) GetProfileWithPosts(ctx context.Context, id uint, limit int) (*models.Profile, error) {
	return s.profileRepo.GetByIDWithPosts(ctx, id, limit)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		if err := validation.ValidateName(in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		profile.Name = in.Name
	}
	if in.Avatar != "" {
		profile.Avatar = in.Avatar
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}
