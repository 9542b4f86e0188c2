package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-match/internal/api"
	"github.com/mentor-match/internal/auth"
	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/middleware"
	"github.com/mentor-match/internal/service"
	"github.com/mentor-match/internal/storage"
	"github.com/mentor-match/internal/storage/storagetest"
	"github.com/mentor-match/internal/validation"
)

const testPassword = "Secr3t!pass"

type server struct {
	t       *testing.T
	handler http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithPinger(t, nil)
}

func newServerWithPinger(t *testing.T, pinger api.Pinger) *server {
	t.Helper()

	db := storagetest.NewDB(t)
	if pinger == nil {
		pinger = db
	}
	log := zerolog.Nop()

	hasher, err := auth.NewPasswordHasher(auth.MinBcryptCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(config.JWTConfig{
		Secret:   "api-test-secret",
		Issuer:   "mentor-mentee-app",
		Audience: "mentor-mentee-users",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	users := storage.NewUserRepository(db)
	profiles := storage.NewProfileRepository(db)
	upload := config.UploadConfig{MaxImageSize: 1 << 20, AllowedImageTypes: []string{"image/jpeg", "image/png"}}

	authSvc := service.NewAuthService(users, profiles, hasher, tokens)
	resp := api.NewResponder(false, log)
	h := api.NewHandler(
		authSvc,
		service.NewProfileService(users, profiles, upload),
		service.NewMentorService(storage.NewMentorRepository(db)),
		service.NewMatchService(storage.NewMatchRepository(db), users),
		pinger,
		validation.New(),
		resp,
		2<<20,
	)
	router := api.NewRouter(h, middleware.NewAuthMiddleware(authSvc, resp.Error, log), api.RouterConfig{
		AllowedOrigins:    []string{"*"},
		AuthMaxConcurrent: 4,
	}, log)

	return &server{t: t, handler: router}
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type account struct {
	ID    int64
	Token string
}

func (s *server) signup(email, role, name string) account {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/api/signup", "", map[string]string{
		"email": email, "password": testPassword, "name": name, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		User  struct{ ID int64 } `json:"user"`
		Token string             `json:"token"`
	}
	decode(s.t, rec, &out)
	return account{ID: out.User.ID, Token: out.Token}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out api.ErrorResponse
	decode(t, rec, &out)
	return out.Error.Code
}

func TestMatchFlow(t *testing.T) {
	s := newServer(t)
	mentor := s.signup("mentor@example.com", "mentor", "Bora")
	mentee := s.signup("mentee@example.com", "mentee", "Ari")

	rec := s.do(http.MethodPost, "/api/match-requests", mentee.Token, map[string]interface{}{
		"mentorId": mentor.ID,
		"message":  "Could you review my Go code?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID       int64  `json:"id"`
		MentorID int64  `json:"mentorId"`
		MenteeID int64  `json:"menteeId"`
		Status   string `json:"status"`
	}
	decode(t, rec, &created)
	assert.Equal(t, mentor.ID, created.MentorID)
	assert.Equal(t, mentee.ID, created.MenteeID)
	assert.Equal(t, "pending", created.Status)

	rec = s.do(http.MethodGet, "/api/match-requests/incoming", mentor.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var incoming []struct {
		ID              int64  `json:"id"`
		CounterpartName string `json:"counterpartName"`
	}
	decode(t, rec, &incoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, created.ID, incoming[0].ID)
	assert.Equal(t, "Ari", incoming[0].CounterpartName)

	// only the addressed mentor may accept
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/match-requests/%d/accept", created.ID), mentee.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	other := s.signup("other@example.com", "mentor", "Cem")
	for _, action := range []string{"accept", "reject"} {
		rec = s.do(http.MethodPut, fmt.Sprintf("/api/match-requests/%d/%s", created.ID, action), other.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, action)
		assert.Equal(t, "FORBIDDEN", errorCode(t, rec), action)
	}

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/match-requests/%d/accept", created.ID), mentor.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var accepted struct {
		Status string `json:"status"`
	}
	decode(t, rec, &accepted)
	assert.Equal(t, "accepted", accepted.Status)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/match-requests/%d/reject", created.ID), mentor.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/match-requests", mentee.Token, map[string]interface{}{
		"mentorId": mentor.ID,
		"message":  "Asking again, just in case.",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_MATCH_REQUEST", errorCode(t, rec))

	rec = s.do(http.MethodGet, "/api/match-requests/outgoing", mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outgoing []struct {
		Status          string `json:"status"`
		CounterpartName string `json:"counterpartName"`
	}
	decode(t, rec, &outgoing)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "accepted", outgoing[0].Status)
	assert.Equal(t, "Bora", outgoing[0].CounterpartName)
}

func TestCancelMatchRequest(t *testing.T) {
	s := newServer(t)
	mentor := s.signup("mentor@example.com", "mentor", "Bora")
	mentee := s.signup("mentee@example.com", "mentee", "Ari")

	rec := s.do(http.MethodPost, "/api/match-requests", mentee.Token, map[string]interface{}{
		"mentorId": mentor.ID,
		"message":  "Please mentor me on databases.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct{ ID int64 }
	decode(t, rec, &created)

	path := fmt.Sprintf("/api/match-requests/%d", created.ID)
	rec = s.do(http.MethodDelete, path, mentor.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, path, mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)

	rec = s.do(http.MethodDelete, path, mentee.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/api/match-requests/abc", mentee.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/match-requests/9999", mentee.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupAndLogin(t *testing.T) {
	s := newServer(t)
	s.signup("Someone@Example.com", "mentee", "Someone")

	rec := s.do(http.MethodPost, "/api/signup", "", map[string]string{
		"email": "someone@example.com", "password": testPassword, "name": "Dup", "role": "mentee",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/signup", "", map[string]string{
		"email": "weak@example.com", "password": "weak", "name": "Weak", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []validation.FieldError `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, "VALIDATION_ERROR", verr.Error.Code)
	fields := make([]string, 0, len(verr.Error.Details.Fields))
	for _, f := range verr.Error.Details.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"password", "role"}, fields)

	rec = s.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": "SOMEONE@example.com", "password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	decode(t, rec, &login)
	assert.NotEmpty(t, login.Token)
	assert.Greater(t, login.ExpiresAt, time.Now().Unix())

	wrong := s.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": "someone@example.com", "password": "Wr0ng!password",
	})
	unknown := s.do(http.MethodPost, "/api/login", "", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, errorCode(t, wrong), errorCode(t, unknown))

	rec = s.do(http.MethodPost, "/api/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthentication(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing header", header: "", code: "MISSING_TOKEN"},
		{name: "wrong scheme", header: "Basic abc", code: "MISSING_TOKEN"},
		{name: "empty bearer", header: "Bearer ", code: "MISSING_TOKEN"},
		{name: "garbage token", header: "Bearer not.a.token", code: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRoleGating(t *testing.T) {
	s := newServer(t)
	mentor := s.signup("mentor@example.com", "mentor", "Bora")
	other := s.signup("other@example.com", "mentor", "Cem")
	mentee := s.signup("mentee@example.com", "mentee", "Ari")

	rec := s.do(http.MethodPost, "/api/match-requests", mentor.Token, map[string]interface{}{
		"mentorId": other.ID, "message": "Mentors cannot ask each other.",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ROLE_FORBIDDEN", errorCode(t, rec))

	rec = s.do(http.MethodGet, "/api/match-requests/incoming", mentee.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/match-requests/outgoing", mentor.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/match-requests", mentee.Token, map[string]interface{}{
		"mentorId": mentee.ID, "message": "Requesting myself here.",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/match-requests", mentee.Token, map[string]interface{}{
		"mentorId": 9999, "message": "Nobody is listening here.",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MENTOR_NOT_FOUND", errorCode(t, rec))
}

func TestProfileAndImage(t *testing.T) {
	s := newServer(t)
	mentor := s.signup("mentor@example.com", "mentor", "Bora")

	rec := s.do(http.MethodGet, "/api/me", mentor.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID      int64  `json:"id"`
		Role    string `json:"role"`
		Profile struct {
			Name     string   `json:"name"`
			ImageURL string   `json:"imageUrl"`
			Skills   []string `json:"skills"`
		} `json:"profile"`
	}
	decode(t, rec, &me)
	assert.Equal(t, mentor.ID, me.ID)
	assert.Equal(t, "mentor", me.Role)
	assert.Equal(t, fmt.Sprintf("/api/images/mentor/%d", mentor.ID), me.Profile.ImageURL)

	imagePath := me.Profile.ImageURL
	rec = s.do(http.MethodGet, imagePath, mentor.Token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, service.PlaceholderURL("mentor"), rec.Header().Get("Location"))

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec = s.do(http.MethodPut, "/api/profile", mentor.Token, map[string]interface{}{
		"bio":    "Backend engineer",
		"skills": []string{"Go", "SQL"},
		"image":  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &me)
	assert.Equal(t, []string{"Go", "SQL"}, me.Profile.Skills)

	rec = s.do(http.MethodGet, imagePath, mentor.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/images/mentee/%d", mentor.ID), mentor.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/profile", mentor.Token, map[string]interface{}{
		"image": "data:image/gif;base64,R0lGODlh",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_IMAGE", errorCode(t, rec))
}

func TestMentorDirectory(t *testing.T) {
	s := newServer(t)
	first := s.signup("zed@example.com", "mentor", "Zed")
	second := s.signup("amy@example.com", "mentor", "Amy")
	mentee := s.signup("mentee@example.com", "mentee", "Ari")

	rec := s.do(http.MethodPut, "/api/profile", first.Token, map[string]interface{}{"skills": []string{"Go"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPut, "/api/profile", second.Token, map[string]interface{}{"skills": []string{"React"}})
	require.Equal(t, http.StatusOK, rec.Code)

	ids := func(rec *httptest.ResponseRecorder) []int64 {
		var list []struct{ ID int64 }
		decode(t, rec, &list)
		out := make([]int64, 0, len(list))
		for _, m := range list {
			out = append(out, m.ID)
		}
		return out
	}

	rec = s.do(http.MethodGet, "/api/mentors", mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{first.ID, second.ID}, ids(rec))

	rec = s.do(http.MethodGet, "/api/mentors?order_by=name", mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{second.ID, first.ID}, ids(rec))

	rec = s.do(http.MethodGet, "/api/mentors?skill=Go", mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{first.ID}, ids(rec))

	rec = s.do(http.MethodGet, "/api/mentors?skill=go", mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/mentors?order_by=age", mentee.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ORDER", errorCode(t, rec))

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/mentors/%d", second.ID), mentee.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Amy"`)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/mentors/%d", mentee.ID), mentee.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(_ context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	rec := newServer(t).do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())

	rec = newServerWithPinger(t, failingPinger{}).do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "unavailable"))
}

func TestUnknownRoute(t *testing.T) {
	rec := newServer(t).do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
