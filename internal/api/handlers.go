package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/middleware"
	"github.com/mentor-match/internal/model"
	"github.com/mentor-match/internal/service"
	"github.com/mentor-match/internal/validation"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains all API handlers
type Handler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
	mentors  *service.MentorService
	matches  *service.MatchService
	db       Pinger
	validate *validation.Validator
	resp     *Responder
	maxBody  int64
}

// NewHandler creates a new API handler
func NewHandler(
	authSvc *service.AuthService,
	profiles *service.ProfileService,
	mentors *service.MentorService,
	matches *service.MatchService,
	db Pinger,
	validate *validation.Validator,
	resp *Responder,
	maxBody int64,
) *Handler {
	return &Handler{
		auth:     authSvc,
		profiles: profiles,
		mentors:  mentors,
		matches:  matches,
		db:       db,
		validate: validate,
		resp:     resp,
		maxBody:  maxBody,
	}
}

// Auth handlers

// Signup godoc
// @Summary Sign up
// @Description Create a mentor or mentee account with an empty profile and return a token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.SignupRequest true "Signup details"
// @Success 201 {object} model.SignupResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 500 {object} ErrorResponse "Server error"
// @Router /signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	req.Normalize()
	if err := h.validate.Struct(req).Err(); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	resp, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Login godoc
// @Summary User login
// @Description Authenticate with email and password and return a JWT
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Server error"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	req.Normalize()
	if err := h.validate.Struct(req).Err(); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Profile handlers

// Me godoc
// @Summary Current user
// @Description Get the authenticated user's account and profile
// @Tags Profile
// @Produce json
// @Success 200 {object} model.ProfileView
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(r)

	view, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Update name, bio, skills (mentors only) and image (base64 data URL, jpeg or png, max 1MB)
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body model.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.ProfileView
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(r)

	var req model.UpdateProfileRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req).Err(); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	view, err := h.profiles.Update(r.Context(), identity.UserID, req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetImage godoc
// @Summary Profile image
// @Description Get a user's profile image, or a redirect to a placeholder when none was uploaded
// @Tags Profile
// @Produce image/jpeg,image/png
// @Param role path string true "mentor or mentee"
// @Param id path int true "User ID"
// @Success 200 {file} binary
// @Success 302 "Redirect to placeholder"
// @Failure 404 {object} ErrorResponse "Not found"
// @Security BearerAuth
// @Router /images/{role}/{id} [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	img, err := h.profiles.Image(r.Context(), model.UserRole(r.PathValue("role")), id)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if img.IsPlaceholder() {
		http.Redirect(w, r, img.Placeholder, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// Mentor handlers

// ListMentors godoc
// @Summary List mentors
// @Description List mentors, optionally filtered by an exact, case-sensitive skill and ordered by id, name or skill
// @Tags Mentors
// @Produce json
// @Param skill query string false "Exact skill"
// @Param order_by query string false "id (default), name or skill"
// @Success 200 {array} model.ProfileView
// @Failure 400 {object} ErrorResponse "Invalid order"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /mentors [get]
func (h *Handler) ListMentors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mentors, err := h.mentors.List(r.Context(), q.Get("skill"), q.Get("order_by"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mentors)
}

// GetMentor godoc
// @Summary Mentor detail
// @Tags Mentors
// @Produce json
// @Param id path int true "Mentor user ID"
// @Success 200 {object} model.ProfileView
// @Failure 404 {object} ErrorResponse "Mentor not found"
// @Security BearerAuth
// @Router /mentors/{id} [get]
func (h *Handler) GetMentor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	mentor, err := h.mentors.Get(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mentor)
}

// Match request handlers

// CreateMatchRequest godoc
// @Summary Send a match request
// @Description Mentee asks a mentor for mentoring; the request starts pending
// @Tags Match Requests
// @Accept json
// @Produce json
// @Param request body model.CreateMatchRequest true "Mentor and message"
// @Success 201 {object} model.MatchRequest
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 403 {object} ErrorResponse "Only mentees"
// @Failure 404 {object} ErrorResponse "Mentor not found"
// @Failure 409 {object} ErrorResponse "Request already exists"
// @Security BearerAuth
// @Router /match-requests [post]
func (h *Handler) CreateMatchRequest(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(r)

	var req model.CreateMatchRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req).Err(); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	created, err := h.matches.Create(r.Context(), req.MentorID, identity.UserID, req.Message)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// IncomingMatchRequests godoc
// @Summary Incoming requests
// @Description Requests addressed to the authenticated mentor, newest first
// @Tags Match Requests
// @Produce json
// @Success 200 {array} model.MatchRequestWithName
// @Failure 403 {object} ErrorResponse "Only mentors"
// @Security BearerAuth
// @Router /match-requests/incoming [get]
func (h *Handler) IncomingMatchRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.matches.ListIncoming(r.Context(), h.identity(r).UserID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

// OutgoingMatchRequests godoc
// @Summary Outgoing requests
// @Description Requests sent by the authenticated mentee, newest first
// @Tags Match Requests
// @Produce json
// @Success 200 {array} model.MatchRequestWithName
// @Failure 403 {object} ErrorResponse "Only mentees"
// @Security BearerAuth
// @Router /match-requests/outgoing [get]
func (h *Handler) OutgoingMatchRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.matches.ListOutgoing(r.Context(), h.identity(r).UserID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

// AcceptMatchRequest godoc
// @Summary Accept a request
// @Tags Match Requests
// @Produce json
// @Param id path int true "Match request ID"
// @Success 200 {object} model.MatchRequest
// @Failure 403 {object} ErrorResponse "Not the addressed mentor"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "No longer pending"
// @Security BearerAuth
// @Router /match-requests/{id}/accept [put]
func (h *Handler) AcceptMatchRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.matches.Accept)
}

// RejectMatchRequest godoc
// @Summary Reject a request
// @Tags Match Requests
// @Produce json
// @Param id path int true "Match request ID"
// @Success 200 {object} model.MatchRequest
// @Failure 403 {object} ErrorResponse "Not the addressed mentor"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "No longer pending"
// @Security BearerAuth
// @Router /match-requests/{id}/reject [put]
func (h *Handler) RejectMatchRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.matches.Reject)
}

// CancelMatchRequest godoc
// @Summary Cancel a request
// @Description The requesting mentee withdraws a pending request; the record is kept as cancelled
// @Tags Match Requests
// @Produce json
// @Param id path int true "Match request ID"
// @Success 200 {object} model.MatchRequest
// @Failure 403 {object} ErrorResponse "Not the requesting mentee"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "No longer pending"
// @Security BearerAuth
// @Router /match-requests/{id} [delete]
func (h *Handler) CancelMatchRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.matches.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, callerID int64) (*model.MatchRequest, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	updated, err := fn(r.Context(), id, h.identity(r).UserID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Health godoc
// @Summary Health check
// @Description Check if the API and its database are reachable
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Health status"
// @Failure 503 {object} map[string]string "Database unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// identity returns the caller set by the auth middleware.
func (h *Handler) identity(r *http.Request) model.Identity {
	identity, _ := middleware.GetIdentity(r.Context())
	return identity
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("invalid " + name).WithDetail("field", name)
	}
	return id, nil
}
