package storage

import (
	"context"
	"fmt"

	"github.com/mentor-match/internal/model"
)

const profileColumns = `id, user_id, name, bio, skills, image_data, image_type, created_at, updated_at`

type ProfileRepository struct {
	db *Database
}

func NewProfileRepository(db *Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var profile model.Profile
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return model.Profile{}, wrapErr(fmt.Sprintf("find profile of user %d", userID), err)
	}
	return profile, nil
}

// Update overwrites the mutable columns of the profile owned by profile.UserID.
func (r *ProfileRepository) Update(ctx context.Context, profile model.Profile) (model.Profile, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`
		UPDATE user_profiles
		SET name = ?, bio = ?, skills = ?, image_data = ?, image_type = ?, updated_at = ?
		WHERE user_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		profile.Name, profile.Bio, profile.Skills, profile.ImageData, profile.ImageType,
		profile.UpdatedAt, profile.UserID,
	)
	if err != nil {
		return model.Profile{}, wrapErr("update profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Profile{}, wrapErr("update profile", err)
	}
	if n == 0 {
		return model.Profile{}, fmt.Errorf("update profile of user %d: %w", profile.UserID, model.ErrNotFound)
	}

	var updated model.Profile
	query = r.db.Rebind(`SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &updated, query, profile.UserID); err != nil {
		return model.Profile{}, wrapErr("reload profile", err)
	}
	return updated, nil
}
