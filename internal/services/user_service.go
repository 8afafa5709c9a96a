package services

import (
	"errors"

	"gorm.io/gorm"

	"karigar-market/internal/models"
)

// UserService handles profile reads and updates.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetProfile retrieves the public profile for a user.
func (s *UserService) GetProfile(userID uint) (*models.Profile, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// UpdateProfile applies the provided profile fields. Only the account
// holder can update their own profile; phone and role are immutable.
func (s *UserService) UpdateProfile(userID uint, req *models.UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, invalidField("name", "must not be empty")
		}
		updates["name"] = *req.Name
	}
	if req.PhotoURL != nil {
		updates["photo_url"] = *req.PhotoURL
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Skill != nil {
		updates["skill"] = *req.Skill
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, unavailable(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetProfile(userID)
}
