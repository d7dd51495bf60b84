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

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

// DAO persists RawIdentity rows in the identities table.
type DAO struct{}

// NewDAO returns an identity DAO. It holds no state; every method takes
// the sqlitedb.Querier (connection or transaction) to use.
func NewDAO() *DAO { return &DAO{} }

// Save inserts a new identity row.
func (d *DAO) Save(ctx context.Context, q sqlitedb.Querier, raw RawIdentity) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO identities (fingerprint, public_key, private_key) VALUES (?, ?, ?)`,
		raw.Fingerprint, raw.PublicKey, nullableBytes(raw.PrivateKey),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity %s: %w", raw.Fingerprint, ErrDuplicate)
		}
		return fmt.Errorf("save identity %s: %w", raw.Fingerprint, err)
	}
	return nil
}

// FindByFingerprint returns the identity with the given fingerprint, or
// ErrNotFound if none exists.
func (d *DAO) FindByFingerprint(ctx context.Context, q sqlitedb.Querier, fingerprint string) (RawIdentity, error) {
	row := q.QueryRowContext(ctx,
		`SELECT fingerprint, public_key, private_key FROM identities WHERE fingerprint = ?`,
		fingerprint,
	)
	return scanIdentity(row)
}

// FindByFingerprints returns every stored identity whose fingerprint is in
// fingerprints. Unknown fingerprints are silently omitted from the result.
func (d *DAO) FindByFingerprints(ctx context.Context, q sqlitedb.Querier, fingerprints []string) ([]RawIdentity, error) {
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
		`SELECT fingerprint, public_key, private_key FROM identities WHERE fingerprint IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find identities by fingerprints: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// FindAll returns every stored identity.
func (d *DAO) FindAll(ctx context.Context, q sqlitedb.Querier) ([]RawIdentity, error) {
	rows, err := q.QueryContext(ctx, `SELECT fingerprint, public_key, private_key FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("find all identities: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

func scanIdentities(rows *sql.Rows) ([]RawIdentity, error) {
	var out []RawIdentity
	for rows.Next() {
		raw, err := scanIdentityRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (RawIdentity, error) {
	return scanIdentityRow(row)
}

func scanIdentityRow(row scanner) (RawIdentity, error) {
	var raw RawIdentity
	var privateKey []byte
	if err := row.Scan(&raw.Fingerprint, &raw.PublicKey, &privateKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RawIdentity{}, ErrNotFound
		}
		return RawIdentity{}, fmt.Errorf("scan identity: %w", err)
	}
	raw.PrivateKey = privateKey
	return raw, nil
}

func nullableBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
