package service

import (
	"context"
	"errors"

	"github.com/mentor-match/internal/model"
)

type MentorService struct {
	mentors model.MentorStore
}

func NewMentorService(mentors model.MentorStore) *MentorService {
	return &MentorService{mentors: mentors}
}

// List returns mentors ordered by orderBy (id when empty). A non-empty skill
// keeps only mentors whose skill list contains exactly that string; the match
// is case-sensitive.
func (s *MentorService) List(ctx context.Context, skill, orderBy string) ([]model.ProfileView, error) {
	order := model.MentorOrder(orderBy)
	if orderBy == "" {
		order = model.MentorOrderID
	}
	if !order.Valid() {
		return nil, ErrInvalidOrder.WithDetail("order_by", orderBy)
	}

	rows, err := s.mentors.List(ctx, order)
	if err != nil {
		return nil, err
	}

	views := make([]model.ProfileView, 0, len(rows))
	for _, row := range rows {
		if skill != "" && !row.Skills.Contains(skill) {
			continue
		}
		views = append(views, mentorView(row))
	}
	return views, nil
}

func (s *MentorService) Get(ctx context.Context, id int64) (*model.ProfileView, error) {
	row, err := s.mentors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	view := mentorView(row)
	return &view, nil
}

func mentorView(row model.MentorRow) model.ProfileView {
	return profileView(row.ID, row.Email, model.UserRoleMentor, row.Name, row.Bio, row.Skills)
}
