package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mentor-match/internal/model"
)

const matchColumns = `mr.id, mr.mentor_id, mr.mentee_id, mr.message, mr.status, mr.created_at, mr.updated_at`

type MatchRepository struct {
	db *Database
}

func NewMatchRepository(db *Database) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Create(ctx context.Context, req model.MatchRequest) (model.MatchRequest, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`
		INSERT INTO match_requests (mentor_id, mentee_id, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		req.MentorID, req.MenteeID, req.Message, req.Status, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		return model.MatchRequest{}, wrapErr("create match request", err)
	}
	return req, nil
}

func (r *MatchRepository) FindByID(ctx context.Context, id int64) (model.MatchRequest, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var req model.MatchRequest
	query := r.db.Rebind(`SELECT ` + matchColumns + ` FROM match_requests mr WHERE mr.id = ?`)
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return model.MatchRequest{}, wrapErr(fmt.Sprintf("find match request %d", id), err)
	}
	return req, nil
}

// Transition moves a pending request to status. It reports false when the
// request is missing or no longer pending.
func (r *MatchRepository) Transition(ctx context.Context, id int64, status model.MatchStatus, at time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`
		UPDATE match_requests
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query, status, at, id, model.MatchStatusPending)
	if err != nil {
		return false, wrapErr("transition match request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("transition match request", err)
	}
	return n == 1, nil
}

// ListIncoming returns requests addressed to the mentor, newest first, with the mentee's name.
func (r *MatchRepository) ListIncoming(ctx context.Context, mentorID int64) ([]model.MatchRequestWithName, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+`, COALESCE(p.name, '') AS counterpart_name
		FROM match_requests mr
		LEFT JOIN user_profiles p ON p.user_id = mr.mentee_id
		WHERE mr.mentor_id = ?
		ORDER BY mr.created_at DESC, mr.id DESC
	`, mentorID)
}

// ListOutgoing returns requests sent by the mentee, newest first, with the mentor's name.
func (r *MatchRepository) ListOutgoing(ctx context.Context, menteeID int64) ([]model.MatchRequestWithName, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+`, COALESCE(p.name, '') AS counterpart_name
		FROM match_requests mr
		LEFT JOIN user_profiles p ON p.user_id = mr.mentor_id
		WHERE mr.mentee_id = ?
		ORDER BY mr.created_at DESC, mr.id DESC
	`, menteeID)
}

func (r *MatchRepository) list(ctx context.Context, query string, userID int64) ([]model.MatchRequestWithName, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	reqs := []model.MatchRequestWithName{}
	if err := r.db.SelectContext(ctx, &reqs, r.db.Rebind(query), userID); err != nil {
		return nil, wrapErr("list match requests", err)
	}
	return reqs, nil
}

// CountByStatus returns the number of requests per status.
func (r *MatchRepository) CountByStatus(ctx context.Context) (map[model.MatchStatus]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rows []struct {
		Status model.MatchStatus `db:"status"`
		Count  int64             `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM match_requests GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, wrapErr("count match requests", err)
	}

	counts := make(map[model.MatchStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
