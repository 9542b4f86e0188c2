package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mentor-match/internal/auth"
	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/model"
	"github.com/mentor-match/internal/storage"
	"github.com/mentor-match/internal/storage/storagetest"
)

// tickingClock advances one second per call so ordering by creation time is deterministic.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	auth    *AuthService
	profile *ProfileService
	mentors *MentorService
	matches *MatchService
	tokens  *auth.TokenIssuer
	users   *storage.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := storagetest.NewDB(t)
	clock := &tickingClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	hasher, err := auth.NewPasswordHasher(auth.MinBcryptCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "mentor-mentee-app",
		Audience: "mentor-mentee-users",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	users := storage.NewUserRepository(db)
	profiles := storage.NewProfileRepository(db)
	upload := config.UploadConfig{MaxImageSize: 1024, AllowedImageTypes: []string{"image/jpeg", "image/png"}}

	return &testEnv{
		auth:    NewAuthService(users, profiles, hasher, tokens, WithClock(clock.Now)),
		profile: NewProfileService(users, profiles, upload, WithClock(clock.Now)),
		mentors: NewMentorService(storage.NewMentorRepository(db)),
		matches: NewMatchService(storage.NewMatchRepository(db), users, WithClock(clock.Now)),
		tokens:  tokens,
		users:   users,
	}
}

func (e *testEnv) signup(t *testing.T, email string, role model.UserRole, name string) *model.SignupResponse {
	t.Helper()
	resp, err := e.auth.Signup(context.Background(), model.SignupRequest{
		Email: email, Password: "Secr3t!pass", Name: name, Role: role,
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) setSkills(t *testing.T, userID int64, skills ...string) {
	t.Helper()
	_, err := e.profile.Update(context.Background(), userID, model.UpdateProfileRequest{Skills: skills})
	require.NoError(t, err)
}
