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

package guardian

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

// DAO persists Guardian rows in the guardians table.
type DAO struct{}

// NewDAO returns a guardian DAO.
func NewDAO() *DAO { return &DAO{} }

// Save inserts a new guardian row.
func (d *DAO) Save(ctx context.Context, q sqlitedb.Querier, g Guardian) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO guardians (store_name, identity_fingerprint, aead, key) VALUES (?, ?, ?, ?)`,
		g.StoreName, g.IdentityFingerprint, g.Enc, g.Ciphertext,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("guardian %s/%s: %w", g.StoreName, g.IdentityFingerprint, ErrDuplicate)
		}
		return fmt.Errorf("save guardian %s/%s: %w", g.StoreName, g.IdentityFingerprint, err)
	}
	return nil
}

// Find returns the guardian for (storeName, fingerprint).
func (d *DAO) Find(ctx context.Context, q sqlitedb.Querier, storeName, fingerprint string) (Guardian, error) {
	row := q.QueryRowContext(ctx,
		`SELECT store_name, identity_fingerprint, aead, key FROM guardians WHERE store_name = ? AND identity_fingerprint = ?`,
		storeName, fingerprint,
	)

	var g Guardian
	if err := row.Scan(&g.StoreName, &g.IdentityFingerprint, &g.Enc, &g.Ciphertext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Guardian{}, ErrNotFound
		}
		return Guardian{}, fmt.Errorf("find guardian %s/%s: %w", storeName, fingerprint, err)
	}
	return g, nil
}

// FindStoreNames returns the distinct store names for which any of
// fingerprints holds a guardian.
func (d *DAO) FindStoreNames(ctx context.Context, q sqlitedb.Querier, fingerprints []string) ([]string, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(fingerprints))
	args := make([]any, len(fingerprints))
	for i, fp := range fingerprints {
		placeholders[i] = "?"
		args[i] = fp
	}

	query := fmt.Sprintf(
		`SELECT DISTINCT store_name FROM guardians WHERE identity_fingerprint IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find store names: %w", err)
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

// DeleteStoreGuardians removes every guardian for storeName.
func (d *DAO) DeleteStoreGuardians(ctx context.Context, q sqlitedb.Querier, storeName string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM guardians WHERE store_name = ?`, storeName)
	if err != nil {
		return fmt.Errorf("delete guardians for %s: %w", storeName, err)
	}
	return nil
}
