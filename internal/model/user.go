package model

import (
	"context"
	"strings"
	"time"
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserRole string

const (
	UserRoleMentor UserRole = "mentor"
	UserRoleMentee UserRole = "mentee"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleMentor || r == UserRoleMentee
}

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserStore defines persistence operations for users.
type UserStore interface {
	// CreateWithProfile inserts the user and its profile atomically and
	// returns both with generated ids.
	CreateWithProfile(ctx context.Context, user User, profile Profile) (User, Profile, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

type SignupRequest struct {
	Email    string   `json:"email" validate:"required,email,max=254"`
	Password string   `json:"password" validate:"required,password"`
	Name     string   `json:"name" validate:"required,min=1,max=100"`
	Role     UserRole `json:"role" validate:"required,oneof=mentor mentee"`
}

func (r *SignupRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

type SignupResponse struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile"`
	Token   string   `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	User      *User  `json:"user"`
}

// Identity is the caller identity carried by a bearer token.
type Identity struct {
	UserID int64    `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	Name   string   `json:"name"`
}
