package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/model"
)

const placeholderImageURL = "https://placehold.co/500x500.jpg?text="

// ImageURL is the API path serving the profile image of a user.
func ImageURL(role model.UserRole, userID int64) string {
	return fmt.Sprintf("/api/images/%s/%d", role, userID)
}

// PlaceholderURL is where users without an uploaded image are redirected.
func PlaceholderURL(role model.UserRole) string {
	return placeholderImageURL + strings.ToUpper(string(role))
}

type ProfileService struct {
	users    model.UserStore
	profiles model.ProfileStore
	upload   config.UploadConfig
	now      func() time.Time
	log      zerolog.Logger
}

func NewProfileService(users model.UserStore, profiles model.ProfileStore, upload config.UploadConfig, opts ...Option) *ProfileService {
	o := buildOptions("profile", opts)
	return &ProfileService{
		users:    users,
		profiles: profiles,
		upload:   upload,
		now:      o.now,
		log:      o.log,
	}
}

// Get returns the caller's account and profile.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*model.ProfileView, error) {
	user, profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := profileView(user.ID, user.Email, user.Role, profile.Name, profile.Bio, profile.Skills)
	return &view, nil
}

// Update applies the provided fields. Skills are ignored for mentees; an empty
// image string removes the stored image.
func (s *ProfileService) Update(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.ProfileView, error) {
	user, profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name must not be blank").WithDetail("field", "name")
		}
		profile.Name = name
	}
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Skills != nil && user.Role == model.UserRoleMentor {
		profile.Skills = model.Skills(slices.Clone(req.Skills))
	}
	if req.Image != nil {
		if *req.Image == "" {
			profile.ImageData, profile.ImageType = nil, nil
		} else {
			mime, data, err := s.decodeImage(*req.Image)
			if err != nil {
				return nil, err
			}
			profile.ImageData, profile.ImageType = data, &mime
		}
	}
	profile.UpdatedAt = s.now()

	updated, err := s.profiles.Update(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Int64("user_id", userID).Bool("has_image", updated.HasImage()).Msg("profile updated")
	view := profileView(user.ID, user.Email, user.Role, updated.Name, updated.Bio, updated.Skills)
	return &view, nil
}

// Image returns the stored image of a user with the given role, or a
// placeholder when none was uploaded.
func (s *ProfileService) Image(ctx context.Context, role model.UserRole, userID int64) (model.Image, error) {
	if !role.Valid() {
		return model.Image{}, ErrImageNotFound
	}
	user, profile, err := s.load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return model.Image{}, ErrImageNotFound
		}
		return model.Image{}, err
	}
	if user.Role != role {
		return model.Image{}, ErrImageNotFound
	}
	if !profile.HasImage() {
		return model.Image{Placeholder: PlaceholderURL(role)}, nil
	}
	return model.Image{Data: profile.ImageData, MimeType: *profile.ImageType}, nil
}

func (s *ProfileService) load(ctx context.Context, userID int64) (model.User, model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.Profile{}, ErrUserNotFound
		}
		return model.User{}, model.Profile{}, err
	}
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.Profile{}, ErrUserNotFound
		}
		return model.User{}, model.Profile{}, err
	}
	return user, profile, nil
}

// decodeImage parses a data:<mime>;base64,<payload> URL and checks the type
// against both the declared mime and the decoded bytes.
func (s *ProfileService) decodeImage(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidImage.WithDetail("reason", "not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidImage.WithDetail("reason", "missing payload")
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalidImage.WithDetail("reason", "payload must be base64")
	}
	mime = strings.ToLower(mime)
	if !slices.Contains(s.upload.AllowedImageTypes, mime) {
		return "", nil, ErrInvalidImage.WithDetail("reason", "unsupported type "+mime)
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > s.upload.MaxImageSize+2 {
		return "", nil, ErrInvalidImage.WithDetail("max_bytes", s.upload.MaxImageSize)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidImage.WithDetail("reason", "invalid base64")
	}
	if len(data) == 0 {
		return "", nil, ErrInvalidImage.WithDetail("reason", "empty image")
	}
	if int64(len(data)) > s.upload.MaxImageSize {
		return "", nil, ErrInvalidImage.WithDetail("max_bytes", s.upload.MaxImageSize)
	}
	if detected := http.DetectContentType(data); detected != mime {
		return "", nil, ErrInvalidImage.WithDetail("reason", "content does not match "+mime)
	}
	return mime, data, nil
}

func profileView(id int64, email string, role model.UserRole, name, bio string, skills model.Skills) model.ProfileView {
	view := model.ProfileView{
		ID:    id,
		Email: email,
		Role:  role,
		Profile: model.ProfileViewBody{
			Name:     name,
			Bio:      bio,
			ImageURL: ImageURL(role, id),
		},
	}
	if role == model.UserRoleMentor {
		view.Profile.Skills = []string{}
		if skills != nil {
			view.Profile.Skills = []string(skills)
		}
	}
	return view
}
