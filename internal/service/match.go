package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/model"
)

// MatchService owns the match request lifecycle:
//
//	pending -> accepted   (addressed mentor)
//	pending -> rejected   (addressed mentor)
//	pending -> cancelled  (requesting mentee)
//
// Terminal requests are kept. A (mentor, mentee) pair can hold at most one
// request ever, so re-requesting after any outcome is a conflict.
type MatchService struct {
	matches model.MatchStore
	users   model.UserStore
	now     func() time.Time
	log     zerolog.Logger
}

func NewMatchService(matches model.MatchStore, users model.UserStore, opts ...Option) *MatchService {
	o := buildOptions("match", opts)
	return &MatchService{
		matches: matches,
		users:   users,
		now:     o.now,
		log:     o.log,
	}
}

// Create opens a pending request from menteeID to mentorID.
func (s *MatchService) Create(ctx context.Context, mentorID, menteeID int64, message string) (*model.MatchRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.Validation("message must not be empty").WithDetail("field", "message")
	}
	if mentorID == menteeID {
		return nil, apperror.Validation("cannot send a match request to yourself").WithDetail("field", "mentorId")
	}

	mentor, err := s.users.FindByID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if mentor.Role != model.UserRoleMentor {
		return nil, ErrMentorNotFound
	}

	mentee, err := s.users.FindByID(ctx, menteeID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotMentee
		}
		return nil, err
	}
	if mentee.Role != model.UserRoleMentee {
		return nil, ErrNotMentee
	}

	now := s.now()
	req, err := s.matches.Create(ctx, model.MatchRequest{
		MentorID:  mentorID,
		MenteeID:  menteeID,
		Message:   message,
		Status:    model.MatchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, model.ErrUniqueViolation) {
			return nil, ErrDuplicateRequest.WithDetail("mentorId", mentorID)
		}
		return nil, err
	}

	s.log.Info().
		Int64("request_id", req.ID).
		Int64("mentor_id", mentorID).
		Int64("mentee_id", menteeID).
		Msg("match request created")
	return &req, nil
}

// Accept is allowed only for the addressed mentor while the request is pending.
func (s *MatchService) Accept(ctx context.Context, id, callerID int64) (*model.MatchRequest, error) {
	return s.transition(ctx, id, callerID, model.MatchStatusAccepted)
}

// Reject is allowed only for the addressed mentor while the request is pending.
func (s *MatchService) Reject(ctx context.Context, id, callerID int64) (*model.MatchRequest, error) {
	return s.transition(ctx, id, callerID, model.MatchStatusRejected)
}

// Cancel is allowed only for the requesting mentee while the request is pending.
func (s *MatchService) Cancel(ctx context.Context, id, callerID int64) (*model.MatchRequest, error) {
	return s.transition(ctx, id, callerID, model.MatchStatusCancelled)
}

func (s *MatchService) ListIncoming(ctx context.Context, mentorID int64) ([]model.MatchRequestWithName, error) {
	return s.matches.ListIncoming(ctx, mentorID)
}

func (s *MatchService) ListOutgoing(ctx context.Context, menteeID int64) ([]model.MatchRequestWithName, error) {
	return s.matches.ListOutgoing(ctx, menteeID)
}

func (s *MatchService) transition(ctx context.Context, id, callerID int64, target model.MatchStatus) (*model.MatchRequest, error) {
	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	owner := req.MentorID
	if target == model.MatchStatusCancelled {
		owner = req.MenteeID
	}
	if callerID != owner {
		return nil, ErrForbidden
	}
	if req.Status.Terminal() {
		return nil, ErrInvalidState.WithDetail("status", req.Status)
	}

	at := s.now()
	ok, err := s.matches.Transition(ctx, id, target, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race with another transition
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, ErrInvalidState.WithDetail("status", current.Status)
	}

	req.Status = target
	req.UpdatedAt = at
	s.log.Info().
		Int64("request_id", id).
		Int64("caller_id", callerID).
		Str("status", string(target)).
		Msg("match request transitioned")
	return &req, nil
}

func (s *MatchService) find(ctx context.Context, id int64) (model.MatchRequest, error) {
	req, err := s.matches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.MatchRequest{}, ErrMatchNotFound
		}
		return model.MatchRequest{}, err
	}
	return req, nil
}
