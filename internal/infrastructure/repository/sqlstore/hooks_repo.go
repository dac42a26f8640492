package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hooktrap/internal/domain/hook"
)

type HooksRepo struct {
	store *Store
}

const insertHookQuery = `INSERT INTO webhooks
	(id, owner, description, active, total_request_count, is_redirect, custom_js, salt, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectHookQuery = `SELECT id, owner, description, active, total_request_count, is_redirect, custom_js, salt, created_at, updated_at
	FROM webhooks WHERE id = ?`

const listHooksQuery = `SELECT id, owner, description, active, total_request_count, is_redirect, custom_js, salt, created_at, updated_at
	FROM webhooks ORDER BY created_at ASC, id ASC`

func (r *HooksRepo) Create(ctx context.Context, h *hook.Hook) error {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(insertHookQuery),
		h.ID,
		nullablePtr(h.Owner),
		nullablePtr(h.Description),
		h.Active,
		h.TotalRequestCount,
		h.IsRedirect,
		nullablePtr(h.CustomJS),
		nullablePtr(h.Salt),
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (r *HooksRepo) Get(ctx context.Context, id string) (*hook.Hook, bool, error) {
	row := r.store.db.QueryRowContext(ctx, r.store.rebind(selectHookQuery), id)
	h, err := scanHook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select webhook: %w", err)
	}
	return h, true, nil
}

func (r *HooksRepo) List(ctx context.Context) ([]*hook.Hook, error) {
	rows, err := r.store.db.QueryContext(ctx, listHooksQuery)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	out := make([]*hook.Hook, 0)
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, fmt.Errorf("list webhooks: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHook(row rowScanner) (*hook.Hook, error) {
	var (
		h                    hook.Hook
		owner, desc          sql.NullString
		customJS, salt       sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&h.ID, &owner, &desc, &h.Active, &h.TotalRequestCount,
		&h.IsRedirect, &customJS, &salt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	h.Owner = ptrFromNull(owner)
	h.Description = ptrFromNull(desc)
	h.CustomJS = ptrFromNull(customJS)
	h.Salt = ptrFromNull(salt)
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
