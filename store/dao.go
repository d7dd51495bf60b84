// Copyright (C) 2025 mxczfr
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

// DAO persists EncryptedStore rows in the store table.
type DAO struct{}

// NewDAO returns an encrypted-store DAO.
func NewDAO() *DAO { return &DAO{} }

// Save inserts a new encrypted store row.
func (d *DAO) Save(ctx context.Context, q sqlitedb.Querier, s EncryptedStore) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO store (name, ciphertext, nonce) VALUES (?, ?, ?)`,
		s.Name, s.Ciphertext, s.Nonce,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("store %s: %w", s.Name, ErrDuplicate)
		}
		return fmt.Errorf("save store %s: %w", s.Name, err)
	}
	return nil
}

// Find returns the encrypted store named name.
func (d *DAO) Find(ctx context.Context, q sqlitedb.Querier, name string) (EncryptedStore, error) {
	row := q.QueryRowContext(ctx, `SELECT name, ciphertext, nonce FROM store WHERE name = ?`, name)

	var s EncryptedStore
	if err := row.Scan(&s.Name, &s.Ciphertext, &s.Nonce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EncryptedStore{}, ErrNotFound
		}
		return EncryptedStore{}, fmt.Errorf("find store %s: %w", name, err)
	}
	return s, nil
}

// Update overwrites the ciphertext/nonce for an existing store.
func (d *DAO) Update(ctx context.Context, q sqlitedb.Querier, s EncryptedStore) error {
	res, err := q.ExecContext(ctx,
		`UPDATE store SET ciphertext = ?, nonce = ? WHERE name = ?`,
		s.Ciphertext, s.Nonce, s.Name,
	)
	if err != nil {
		return fmt.Errorf("update store %s: %w", s.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update store %s: %w", s.Name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the store named name.
func (d *DAO) Delete(ctx context.Context, q sqlitedb.Querier, name string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM store WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete store %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete store %s: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNames returns every stored store's name.
func (d *DAO) ListNames(ctx context.Context, q sqlitedb.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM store ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list store names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan store name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
