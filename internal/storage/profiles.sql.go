package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finanzen/internal/core"
)

const profileColumns = `id, name, color, is_admin, created_at`

func scanProfile(s scanner) (core.Profile, error) {
	var (
		p         core.Profile
		isAdmin   int64
		createdAt string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Color, &isAdmin, &createdAt); err != nil {
		return core.Profile{}, err
	}
	p.IsAdmin = isAdmin != 0
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

const getProfile = `-- name: GetProfile :one
SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`

func (q *Queries) GetProfile(ctx context.Context, id int64) (core.Profile, error) {
	p, err := scanProfile(q.db.QueryRowContext(ctx, getProfile, id))
	if err != nil {
		return core.Profile{}, notFound(err, "profile", id)
	}
	return p, nil
}

const getAdminProfile = `-- name: GetAdminProfile :one
SELECT ` + profileColumns + ` FROM profiles WHERE is_admin = 1 ORDER BY id LIMIT 1`

func (q *Queries) GetAdminProfile(ctx context.Context) (core.Profile, error) {
	p, err := scanProfile(q.db.QueryRowContext(ctx, getAdminProfile))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("admin profile: %w", core.ErrNotFound)
	}
	return p, err
}

const listProfiles = `-- name: ListProfiles :many
SELECT ` + profileColumns + ` FROM profiles ORDER BY is_admin DESC, name`

func (q *Queries) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const profileNameTaken = `-- name: ProfileNameTaken :one
SELECT EXISTS(SELECT 1 FROM profiles WHERE name = ? AND id != ?)`

func (q *Queries) ProfileNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken int64
	err := q.db.QueryRowContext(ctx, profileNameTaken, name, excludeID).Scan(&taken)
	return taken != 0, err
}

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (name, color, is_admin, created_at) VALUES (?, ?, ?, ?)
RETURNING ` + profileColumns

func (q *Queries) CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if p.Color == "" {
		p.Color = core.DefaultProfileColor
	}
	return scanProfile(q.db.QueryRowContext(ctx, createProfile, p.Name, p.Color, boolInt(p.IsAdmin), now()))
}

const updateProfile = `-- name: UpdateProfile :exec
UPDATE profiles SET name = ?, color = ? WHERE id = ?`

func (q *Queries) UpdateProfile(ctx context.Context, p core.Profile) error {
	res, err := q.db.ExecContext(ctx, updateProfile, p.Name, p.Color, p.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "profile", p.ID)
}

const deleteProfile = `-- name: DeleteProfile :exec
DELETE FROM profiles WHERE id = ?`

func (q *Queries) DeleteProfile(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteProfile, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "profile", id)
}
