// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const countMarketPosts = `SELECT COUNT(*) FROM market_posts
`

func (q *Queries) CountMarketPosts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMarketPosts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createMarketPost = `INSERT INTO market_posts (
    title, description, category, price, attachment_path,
    contact_name, contact_phone, contact_email, created_by, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, description, category, price, attachment_path, contact_name, contact_phone, contact_email, created_by, created_at, updated_at
`

type CreateMarketPostParams struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          sql.NullFloat64 `json:"price"`
	AttachmentPath sql.NullString  `json:"attachment_path"`
	ContactName    string          `json:"contact_name"`
	ContactPhone   string          `json:"contact_phone"`
	ContactEmail   string          `json:"contact_email"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (q *Queries) CreateMarketPost(ctx context.Context, arg CreateMarketPostParams) (MarketPost, error) {
	row := q.db.QueryRowContext(ctx, createMarketPost,
		arg.Title,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.AttachmentPath,
		arg.ContactName,
		arg.ContactPhone,
		arg.ContactEmail,
		arg.CreatedBy,
		arg.CreatedAt,
	)
	var i MarketPost
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.AttachmentPath,
		&i.ContactName,
		&i.ContactPhone,
		&i.ContactEmail,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteMarketPost = `DELETE FROM market_posts WHERE id = ?
`

func (q *Queries) DeleteMarketPost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteMarketPost, id)
	return err
}

const getMarketPost = `SELECT m.id, m.title, m.description, m.category, m.price, m.attachment_path,
       m.contact_name, m.contact_phone, m.contact_email, m.created_by, m.created_at, m.updated_at,
       u.username AS author
FROM market_posts m
LEFT JOIN users u ON u.id = m.created_by
WHERE m.id = ?
`

type GetMarketPostRow struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          sql.NullFloat64 `json:"price"`
	AttachmentPath sql.NullString  `json:"attachment_path"`
	ContactName    string          `json:"contact_name"`
	ContactPhone   string          `json:"contact_phone"`
	ContactEmail   string          `json:"contact_email"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      sql.NullTime    `json:"updated_at"`
	Author         sql.NullString  `json:"author"`
}

func (q *Queries) GetMarketPost(ctx context.Context, id int64) (GetMarketPostRow, error) {
	row := q.db.QueryRowContext(ctx, getMarketPost, id)
	var i GetMarketPostRow
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.AttachmentPath,
		&i.ContactName,
		&i.ContactPhone,
		&i.ContactEmail,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Author,
	)
	return i, err
}

const listMarketPosts = `SELECT m.id, m.title, m.description, m.category, m.price, m.attachment_path,
       m.contact_name, m.contact_phone, m.contact_email, m.created_by, m.created_at, m.updated_at,
       u.username AS author
FROM market_posts m
LEFT JOIN users u ON u.id = m.created_by
ORDER BY m.created_at DESC, m.id DESC
`

type ListMarketPostsRow struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          sql.NullFloat64 `json:"price"`
	AttachmentPath sql.NullString  `json:"attachment_path"`
	ContactName    string          `json:"contact_name"`
	ContactPhone   string          `json:"contact_phone"`
	ContactEmail   string          `json:"contact_email"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      sql.NullTime    `json:"updated_at"`
	Author         sql.NullString  `json:"author"`
}

func (q *Queries) ListMarketPosts(ctx context.Context) ([]ListMarketPostsRow, error) {
	rows, err := q.db.QueryContext(ctx, listMarketPosts)
	if err != nil {
		return nil, err
	}
	return scanMarketPostRows(rows)
}

const listMarketPostsByCategory = `SELECT m.id, m.title, m.description, m.category, m.price, m.attachment_path,
       m.contact_name, m.contact_phone, m.contact_email, m.created_by, m.created_at, m.updated_at,
       u.username AS author
FROM market_posts m
LEFT JOIN users u ON u.id = m.created_by
WHERE m.category = ?
ORDER BY m.created_at DESC, m.id DESC
`

func (q *Queries) ListMarketPostsByCategory(ctx context.Context, category string) ([]ListMarketPostsRow, error) {
	rows, err := q.db.QueryContext(ctx, listMarketPostsByCategory, category)
	if err != nil {
		return nil, err
	}
	return scanMarketPostRows(rows)
}

const updateMarketPost = `UPDATE market_posts
SET title = ?, description = ?, category = ?, price = ?, attachment_path = ?,
    contact_name = ?, contact_phone = ?, contact_email = ?, updated_at = ?
WHERE id = ?
`

type UpdateMarketPostParams struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          sql.NullFloat64 `json:"price"`
	AttachmentPath sql.NullString  `json:"attachment_path"`
	ContactName    string          `json:"contact_name"`
	ContactPhone   string          `json:"contact_phone"`
	ContactEmail   string          `json:"contact_email"`
	UpdatedAt      sql.NullTime    `json:"updated_at"`
	ID             int64           `json:"id"`
}

func (q *Queries) UpdateMarketPost(ctx context.Context, arg UpdateMarketPostParams) error {
	_, err := q.db.ExecContext(ctx, updateMarketPost,
		arg.Title,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.AttachmentPath,
		arg.ContactName,
		arg.ContactPhone,
		arg.ContactEmail,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

func scanMarketPostRows(rows *sql.Rows) ([]ListMarketPostsRow, error) {
	defer rows.Close()
	items := []ListMarketPostsRow{}
	for rows.Next() {
		var i ListMarketPostsRow
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Description,
			&i.Category,
			&i.Price,
			&i.AttachmentPath,
			&i.ContactName,
			&i.ContactPhone,
			&i.ContactEmail,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.Author,
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
