package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mentor-match/internal/model"
)

const userColumns = `id, email, password_hash, role, created_at, updated_at`

type UserRepository struct {
	db *Database
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithProfile inserts the user and its profile in one transaction.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user model.User, profile model.Profile) (model.User, model.Profile, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO users (email, password_hash, role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`)
		if err := tx.QueryRowxContext(ctx, query,
			user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt,
		).Scan(&user.ID); err != nil {
			return wrapErr("create user", err)
		}

		profile.UserID = user.ID
		query = tx.Rebind(`
			INSERT INTO user_profiles (user_id, name, bio, skills, image_data, image_type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		if err := tx.QueryRowxContext(ctx, query,
			profile.UserID, profile.Name, profile.Bio, profile.Skills,
			profile.ImageData, profile.ImageType, profile.CreatedAt, profile.UpdatedAt,
		).Scan(&profile.ID); err != nil {
			return wrapErr("create profile", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, model.Profile{}, err
	}
	return user, profile, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return model.User{}, wrapErr("find user by email", err)
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return model.User{}, wrapErr(fmt.Sprintf("find user %d", id), err)
	}
	return user, nil
}
