package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hooktrap/internal/application/ports"
	"hooktrap/internal/domain/capture"
)

type RequestsRepo struct {
	store *Store
}

const insertRequestQuery = `INSERT INTO requests
	(id, hook_id, body, headers, ip, method, is_cron, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRequestQuery = `SELECT id, hook_id, body, headers, ip, method, is_cron, created_at, updated_at
	FROM requests WHERE id = ?`

// The list view projects only ip, method, id and created_at; bodies and
// header blobs stay out of list payloads.
const listRequestsQuery = `SELECT ip, method, id, created_at
	FROM requests WHERE hook_id = ?`

func (r *RequestsRepo) Create(ctx context.Context, req *capture.Request) error {
	_, err := r.store.db.ExecContext(ctx, r.store.rebind(insertRequestQuery),
		req.ID,
		req.HookID,
		req.Body,
		req.Headers,
		nullable(req.IP),
		req.Method,
		req.IsCron,
		formatTime(req.CreatedAt),
		formatTime(req.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *RequestsRepo) Get(ctx context.Context, id string) (*capture.Request, bool, error) {
	var (
		req                  capture.Request
		ip                   sql.NullString
		createdAt, updatedAt string
	)
	row := r.store.db.QueryRowContext(ctx, r.store.rebind(selectRequestQuery), id)
	err := row.Scan(&req.ID, &req.HookID, &req.Body, &req.Headers, &ip,
		&req.Method, &req.IsCron, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select request: %w", err)
	}
	req.IP = ip.String
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, false, err
	}
	if req.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, false, err
	}
	return &req, true, nil
}

func (r *RequestsRepo) ListByHook(ctx context.Context, hookID string, order ports.SortOrder) ([]capture.Summary, error) {
	query := listRequestsQuery
	if order == ports.SortOldestFirst {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}

	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(query), hookID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := make([]capture.Summary, 0)
	for rows.Next() {
		var (
			s         capture.Summary
			ip        sql.NullString
			createdAt string
		)
		if err := rows.Scan(&ip, &s.Method, &s.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		s.IP = ip.String
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}
