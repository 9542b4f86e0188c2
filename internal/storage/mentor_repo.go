package storage

import (
	"context"
	"fmt"

	"github.com/mentor-match/internal/model"
)

const mentorSelect = `
	SELECT
		u.id,
		u.email,
		COALESCE(p.name, '') AS name,
		COALESCE(p.bio, '') AS bio,
		p.skills
	FROM users u
	LEFT JOIN user_profiles p ON p.user_id = u.id
	WHERE u.role = 'mentor'
`

type MentorRepository struct {
	db *Database
}

func NewMentorRepository(db *Database) *MentorRepository {
	return &MentorRepository{db: db}
}

// List returns every mentor in the requested order. Skill order compares the
// stored JSON skill list as text.
func (r *MentorRepository) List(ctx context.Context, order model.MentorOrder) ([]model.MentorRow, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var orderBy string
	switch order {
	case model.MentorOrderName:
		orderBy = ` ORDER BY COALESCE(p.name, '') ASC, u.id ASC`
	case model.MentorOrderSkill:
		orderBy = ` ORDER BY COALESCE(p.skills, '') ASC, u.id ASC`
	default:
		orderBy = ` ORDER BY u.id ASC`
	}

	mentors := []model.MentorRow{}
	if err := r.db.SelectContext(ctx, &mentors, mentorSelect+orderBy); err != nil {
		return nil, wrapErr("list mentors", err)
	}
	return mentors, nil
}

func (r *MentorRepository) FindByID(ctx context.Context, id int64) (model.MentorRow, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var mentor model.MentorRow
	query := r.db.Rebind(mentorSelect + ` AND u.id = ?`)
	if err := r.db.GetContext(ctx, &mentor, query, id); err != nil {
		return model.MentorRow{}, wrapErr(fmt.Sprintf("find mentor %d", id), err)
	}
	return mentor, nil
}
