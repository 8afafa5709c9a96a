package services

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"karigar-market/internal/models"
	"karigar-market/internal/repository"
)

// AuthService handles account registration and phone/password login.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Register creates a new account. The phone number is the login
// identity and must be unique; the role is fixed at signup.
func (s *AuthService) Register(req *models.RegisterRequest) (*models.User, error) {
	if !models.ValidRole(req.Role) {
		return nil, invalidField("role", "must be homeowner, worker, contractor or shop")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, unavailable(err)
	}

	user := models.User{
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         models.UserRole(req.Role),
		Location:     req.Location,
		Skill:        req.Skill,
	}

	if err := s.db.Create(&user).Error; err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, invalidField("phone", "already registered")
		}
		return nil, unavailable(err)
	}

	log.Printf("New user registered: %s (ID: %d, role: %s)", user.Phone, user.ID, user.Role)
	return &user, nil
}

// Login verifies the phone/password pair and returns the account.
// Wrong phone and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(req *models.LoginRequest) (*models.User, error) {
	var user models.User
	if err := s.db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionDenied
		}
		return nil, unavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrPermissionDenied
	}

	log.Printf("User logged in: %s (ID: %d)", user.Phone, user.ID)
	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return &user, nil
}
