package model

import (
	"context"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusRejected  MatchStatus = "rejected"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s MatchStatus) Terminal() bool {
	return s != MatchStatusPending
}

type MatchRequest struct {
	ID        int64       `json:"id" db:"id"`
	MentorID  int64       `json:"mentorId" db:"mentor_id"`
	MenteeID  int64       `json:"menteeId" db:"mentee_id"`
	Message   string      `json:"message" db:"message"`
	Status    MatchStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// MatchRequestWithName is a request enriched with the counterpart's display name.
type MatchRequestWithName struct {
	MatchRequest
	CounterpartName string `json:"counterpartName" db:"counterpart_name"`
}

// MatchStore defines persistence operations for match requests.
type MatchStore interface {
	Create(ctx context.Context, req MatchRequest) (MatchRequest, error)
	FindByID(ctx context.Context, id int64) (MatchRequest, error)
	// Transition moves a pending request to status and reports whether a row changed.
	Transition(ctx context.Context, id int64, status MatchStatus, at time.Time) (bool, error)
	ListIncoming(ctx context.Context, mentorID int64) ([]MatchRequestWithName, error)
	ListOutgoing(ctx context.Context, menteeID int64) ([]MatchRequestWithName, error)
	CountByStatus(ctx context.Context) (map[MatchStatus]int64, error)
}

type CreateMatchRequest struct {
	MentorID int64  `json:"mentorId" validate:"required,gt=0"`
	Message  string `json:"message" validate:"required,min=10,max=1000"`
}
