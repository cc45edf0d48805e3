// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const countContacts = `SELECT COUNT(*) FROM contacts
`

func (q *Queries) CountContacts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countContacts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createContact = `INSERT INTO contacts (name, role, phone, email)
VALUES (?, ?, ?, ?)
RETURNING id, name, role, phone, email
`

type CreateContactParams struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (q *Queries) CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error) {
	row := q.db.QueryRowContext(ctx, createContact,
		arg.Name,
		arg.Role,
		arg.Phone,
		arg.Email,
	)
	var i Contact
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Role,
		&i.Phone,
		&i.Email,
	)
	return i, err
}

const deleteContact = `DELETE FROM contacts WHERE id = ?
`

func (q *Queries) DeleteContact(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteContact, id)
	return err
}

const getContact = `SELECT id, name, role, phone, email FROM contacts WHERE id = ?
`

func (q *Queries) GetContact(ctx context.Context, id int64) (Contact, error) {
	row := q.db.QueryRowContext(ctx, getContact, id)
	var i Contact
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Role,
		&i.Phone,
		&i.Email,
	)
	return i, err
}

const listContacts = `SELECT id, name, role, phone, email FROM contacts
ORDER BY name ASC, id ASC
`

func (q *Queries) ListContacts(ctx context.Context) ([]Contact, error) {
	rows, err := q.db.QueryContext(ctx, listContacts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Contact{}
	for rows.Next() {
		var i Contact
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Role,
			&i.Phone,
			&i.Email,
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

const updateContact = `UPDATE contacts SET name = ?, role = ?, phone = ?, email = ? WHERE id = ?
`

type UpdateContactParams struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	ID    int64  `json:"id"`
}

func (q *Queries) UpdateContact(ctx context.Context, arg UpdateContactParams) error {
	_, err := q.db.ExecContext(ctx, updateContact,
		arg.Name,
		arg.Role,
		arg.Phone,
		arg.Email,
		arg.ID,
	)
	return err
}
