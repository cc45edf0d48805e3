// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const countNotices = `SELECT COUNT(*) FROM notices
`

func (q *Queries) CountNotices(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countNotices)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createNotice = `INSERT INTO notices (title, content, category, attachment_path, is_published, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
`

type CreateNoticeParams struct {
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Category       string         `json:"category"`
	AttachmentPath sql.NullString `json:"attachment_path"`
	IsPublished    bool           `json:"is_published"`
	CreatedBy      sql.NullInt64  `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (q *Queries) CreateNotice(ctx context.Context, arg CreateNoticeParams) (Notice, error) {
	row := q.db.QueryRowContext(ctx, createNotice,
		arg.Title,
		arg.Content,
		arg.Category,
		arg.AttachmentPath,
		arg.IsPublished,
		arg.CreatedBy,
		arg.CreatedAt,
	)
	var i Notice
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.Category,
		&i.AttachmentPath,
		&i.IsPublished,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteNotice = `DELETE FROM notices WHERE id = ?
`

func (q *Queries) DeleteNotice(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteNotice, id)
	return err
}

const getNotice = `SELECT id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
FROM notices WHERE id = ?
`

func (q *Queries) GetNotice(ctx context.Context, id int64) (Notice, error) {
	row := q.db.QueryRowContext(ctx, getNotice, id)
	var i Notice
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.Category,
		&i.AttachmentPath,
		&i.IsPublished,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAllNotices = `SELECT id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
FROM notices
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListAllNotices(ctx context.Context) ([]Notice, error) {
	rows, err := q.db.QueryContext(ctx, listAllNotices)
	if err != nil {
		return nil, err
	}
	return scanNotices(rows)
}

const listNotices = `SELECT id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
FROM notices
WHERE is_published = 1
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListNotices(ctx context.Context) ([]Notice, error) {
	rows, err := q.db.QueryContext(ctx, listNotices)
	if err != nil {
		return nil, err
	}
	return scanNotices(rows)
}

const listNoticesByCategory = `SELECT id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
FROM notices
WHERE is_published = 1 AND category = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListNoticesByCategory(ctx context.Context, category string) ([]Notice, error) {
	rows, err := q.db.QueryContext(ctx, listNoticesByCategory, category)
	if err != nil {
		return nil, err
	}
	return scanNotices(rows)
}

const listPublishedNotices = `SELECT id, title, content, category, attachment_path, is_published, created_by, created_at, updated_at
FROM notices
WHERE is_published = 1
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListPublishedNotices(ctx context.Context, limit int64) ([]Notice, error) {
	rows, err := q.db.QueryContext(ctx, listPublishedNotices, limit)
	if err != nil {
		return nil, err
	}
	return scanNotices(rows)
}

const updateNotice = `UPDATE notices
SET title = ?, content = ?, category = ?, attachment_path = ?, is_published = ?, updated_at = ?
WHERE id = ?
`

type UpdateNoticeParams struct {
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Category       string         `json:"category"`
	AttachmentPath sql.NullString `json:"attachment_path"`
	IsPublished    bool           `json:"is_published"`
	UpdatedAt      sql.NullTime   `json:"updated_at"`
	ID             int64          `json:"id"`
}

func (q *Queries) UpdateNotice(ctx context.Context, arg UpdateNoticeParams) error {
	_, err := q.db.ExecContext(ctx, updateNotice,
		arg.Title,
		arg.Content,
		arg.Category,
		arg.AttachmentPath,
		arg.IsPublished,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

func scanNotices(rows *sql.Rows) ([]Notice, error) {
	defer rows.Close()
	items := []Notice{}
	for rows.Next() {
		var i Notice
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Content,
			&i.Category,
			&i.AttachmentPath,
			&i.IsPublished,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
