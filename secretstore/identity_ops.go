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

package secretstore

import (
	"context"
	"database/sql"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

// CreateIdentitiesForSync wraps identity.Manager.CreateIdentities in a
// transaction for the "identity sync" CLI command.
func (c *Coordinator) CreateIdentitiesForSync(ctx context.Context) ([]string, error) {
	var created []string
	err := sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		fingerprints, err := c.identities.CreateIdentities(ctx, tx)
		if err != nil {
			return err
		}
		created = fingerprints
		return nil
	})
	return created, err
}

// ListIdentities returns only the identities owned by the currently loaded
// agent by default, or every known identity when all is true.
func (c *Coordinator) ListIdentities(ctx context.Context, all bool) ([]string, error) {
	var fingerprints []string
	err := sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		seq := c.identities.GetIdentitiesBasedOnAgent(ctx, tx)
		if all {
			seq = c.identities.GetIdentities(ctx, tx)
		}
		for pub, err := range seq {
			if err != nil {
				return err
			}
			fingerprints = append(fingerprints, pub.Fingerprint)
		}
		return nil
	})
	return fingerprints, err
}
