package model

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Skills is a mentor's ordered skill list, stored as a JSON array.
type Skills []string

func (s Skills) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Skills) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported skills column type %T", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Contains reports exact, case-sensitive membership.
func (s Skills) Contains(skill string) bool {
	for _, v := range s {
		if v == skill {
			return true
		}
	}
	return false
}

type Profile struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Bio       string    `json:"bio" db:"bio"`
	Skills    Skills    `json:"skills,omitempty" db:"skills"`
	ImageData []byte    `json:"-" db:"image_data"`
	ImageType *string   `json:"-" db:"image_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasImage reports whether a custom image is stored.
func (p *Profile) HasImage() bool {
	return len(p.ImageData) > 0 && p.ImageType != nil && *p.ImageType != ""
}

// ProfileStore defines persistence operations for user profiles.
type ProfileStore interface {
	FindByUserID(ctx context.Context, userID int64) (Profile, error)
	Update(ctx context.Context, profile Profile) (Profile, error)
}

type UpdateProfileRequest struct {
	Name   *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Bio    *string  `json:"bio,omitempty" validate:"omitempty,max=500"`
	Skills []string `json:"skills,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	Image  *string  `json:"image,omitempty"`
}

// ProfileView is the /me response shape.
type ProfileView struct {
	ID      int64           `json:"id"`
	Email   string          `json:"email"`
	Role    UserRole        `json:"role"`
	Profile ProfileViewBody `json:"profile"`
}

type ProfileViewBody struct {
	Name     string   `json:"name"`
	Bio      string   `json:"bio"`
	ImageURL string   `json:"imageUrl"`
	Skills   []string `json:"skills,omitempty"`
}

// Image is either stored bytes or a placeholder URL.
type Image struct {
	Data        []byte
	MimeType    string
	Placeholder string
}

func (i Image) IsPlaceholder() bool {
	return i.Placeholder != ""
}
