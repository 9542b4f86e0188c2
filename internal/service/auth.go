package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/model"
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	Issue(id model.Identity) (string, time.Time, error)
	Verify(token string) (model.Identity, error)
}

type AuthService struct {
	users    model.UserStore
	profiles model.ProfileStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(users model.UserStore, profiles model.ProfileStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *AuthService {
	o := buildOptions("auth", opts)
	return &AuthService{
		users:    users,
		profiles: profiles,
		hasher:   hasher,
		tokens:   tokens,
		now:      o.now,
		log:      o.log,
	}
}

// Signup creates the user with an empty profile and returns a token for it.
// The request is expected to be validated already.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.SignupResponse, error) {
	req.Normalize()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := s.now()
	user := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := model.Profile{
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Role == model.UserRoleMentor {
		profile.Skills = model.Skills{}
	}

	user, profile, err = s.users.CreateWithProfile(ctx, user, profile)
	if err != nil {
		if errors.Is(err, model.ErrUniqueViolation) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token, _, err := s.tokens.Issue(identityOf(user, profile))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")
	return &model.SignupResponse{User: &user, Profile: &profile, Token: token}, nil
}

// Login checks the credentials. Unknown emails and wrong passwords fail the
// same way and cost the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	req.Normalize()

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.hasher.VerifyDummy(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.log.Debug().Int64("user_id", user.ID).Msg("login failed: password mismatch")
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(identityOf(user, profile))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      &user,
	}, nil
}

// Authenticate verifies a bearer token.
func (s *AuthService) Authenticate(token string) (model.Identity, error) {
	return s.tokens.Verify(token)
}

func identityOf(user model.User, profile model.Profile) model.Identity {
	return model.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Name:   profile.Name,
	}
}
