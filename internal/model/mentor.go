package model

import "context"

type MentorOrder string

const (
	MentorOrderID    MentorOrder = "id"
	MentorOrderName  MentorOrder = "name"
	MentorOrderSkill MentorOrder = "skill"
)

func (o MentorOrder) Valid() bool {
	switch o {
	case MentorOrderID, MentorOrderName, MentorOrderSkill:
		return true
	}
	return false
}

// MentorRow is a mentor joined with its profile.
type MentorRow struct {
	ID     int64  `db:"id"`
	Email  string `db:"email"`
	Name   string `db:"name"`
	Bio    string `db:"bio"`
	Skills Skills `db:"skills"`
}

// MentorStore lists mentors for the directory.
type MentorStore interface {
	List(ctx context.Context, order MentorOrder) ([]MentorRow, error)
	FindByID(ctx context.Context, id int64) (MentorRow, error)
}
