package services

import (
	"errors"
	"testing"

	"karigar-market/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuthService(db)

	user, err := service.Register(&models.RegisterRequest{
		Phone:    "+919876543210",
		Password: "secret123",
		Name:     "Ravi",
		Role:     "worker",
		Location: "Patna",
		Skill:    "plumbing",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password must not be stored in plaintext")
	}
	if user.Role != models.RoleWorker {
		t.Errorf("expected role worker, got %s", user.Role)
	}

	logged, err := service.Login(&models.LoginRequest{Phone: "+919876543210", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, logged.ID)
	}

	if _, err := service.Login(&models.LoginRequest{Phone: "+919876543210", Password: "wrong"}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for wrong password, got %v", err)
	}
	if _, err := service.Login(&models.LoginRequest{Phone: "+910000000000", Password: "secret123"}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for unknown phone, got %v", err)
	}
}

func TestRegister_RejectsBadRoleAndDuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuthService(db)

	if _, err := service.Register(&models.RegisterRequest{
		Phone:    "+919876543210",
		Password: "secret123",
		Name:     "Ravi",
		Role:     "astronaut",
	}); !IsValidationError(err) {
		t.Errorf("expected ValidationError for unknown role, got %v", err)
	}

	first := &models.RegisterRequest{
		Phone:    "+919876543210",
		Password: "secret123",
		Name:     "Ravi",
		Role:     "worker",
	}
	if _, err := service.Register(first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := service.Register(first); !IsValidationError(err) {
		t.Errorf("expected ValidationError for duplicate phone, got %v", err)
	}
}

func TestUserService_ProfileRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "asha", models.RoleHomeowner)
	service := NewUserService(db)

	profile, err := service.GetProfile(user.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Name != user.Name || profile.Role != models.RoleHomeowner {
		t.Errorf("unexpected profile %+v", profile)
	}

	newName := "Asha Devi"
	newSkill := ""
	updated, err := service.UpdateProfile(user.ID, &models.UpdateProfileRequest{
		Name:  &newName,
		Skill: &newSkill,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	empty := ""
	if _, err := service.UpdateProfile(user.ID, &models.UpdateProfileRequest{Name: &empty}); !IsValidationError(err) {
		t.Errorf("expected ValidationError for empty name, got %v", err)
	}

	if _, err := service.GetProfile(99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
