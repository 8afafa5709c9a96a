package models

import (
	"time"
)

type UserRole string

const (
	RoleHomeowner  UserRole = "homeowner"
	RoleWorker     UserRole = "worker"
	RoleContractor UserRole = "contractor"
	RoleShop       UserRole = "shop"
)

// User represents an account in the marketplace. The role is fixed at
// signup and drives which screens the client renders; the engine itself
// only cares about the identifier.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Phone        string    `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Role         UserRole  `gorm:"size:20;not null;index" json:"role"`
	PhotoURL     string    `gorm:"size:500" json:"photo_url"`
	Location     string    `gorm:"size:255" json:"location"`
	Skill        string    `gorm:"size:255" json:"skill"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// ValidRole reports whether s is one of the four marketplace roles.
func ValidRole(s string) bool {
	switch UserRole(s) {
	case RoleHomeowner, RoleWorker, RoleContractor, RoleShop:
		return true
	}
	return false
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Location string `json:"location"`
	Skill    string `json:"skill"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the mutable profile fields.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photo_url"`
	Location *string `json:"location"`
	Skill    *string `json:"skill"`
}

// Profile is the public view of a user attached to submission listings
// and conversation inboxes.
type Profile struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	PhotoURL string   `json:"photo_url"`
	Location string   `json:"location"`
	Skill    string   `json:"skill"`
}

// PublicProfile strips the credential fields off a User.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:       u.ID,
		Name:     u.Name,
		Role:     u.Role,
		PhotoURL: u.PhotoURL,
		Location: u.Location,
		Skill:    u.Skill,
	}
}
