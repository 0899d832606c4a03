package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates account types.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// User is a teacher or student account. PasswordHash is a bcrypt hash
// and never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name"`
	Grade        *Grade    `json:"grade,omitempty"` // students only
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for both student and teacher login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// RegisterRequest is the payload for student self-registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	FullName string `json:"full_name" binding:"required,min=1,max=255"`
	Grade    string `json:"grade" binding:"required,oneof=10 11 12"`
}

// CreateUserRequest is the admin payload for creating any account.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Role     string `json:"role" binding:"required,oneof=teacher student"`
	FullName string `json:"full_name" binding:"required,min=1,max=255"`
	Grade    string `json:"grade" binding:"omitempty,oneof=10 11 12"`
}

// UpdateUserRequest is the admin payload for updating an account.
// An empty password keeps the current one.
type UpdateUserRequest struct {
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	FullName string `json:"full_name" binding:"omitempty,min=1,max=255"`
	Grade    string `json:"grade" binding:"omitempty,oneof=10 11 12"`
}
