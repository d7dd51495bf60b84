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

// Package sqlitedb opens the embedded secret-store database and applies
// its schema.
//
// The store is single-writer, single-process: callers open one *sql.DB per
// process and wrap each coordinator-level operation in its own transaction.
// There is no cross-process locking; a second process pointed at the same
// data.db can corrupt it if run concurrently.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	fingerprint  TEXT PRIMARY KEY,
	public_key   BLOB NOT NULL,
	private_key  BLOB
);

CREATE TABLE IF NOT EXISTS guardians (
	store_name            TEXT NOT NULL,
	identity_fingerprint   TEXT NOT NULL,
	aead                   BLOB NOT NULL,
	key                    BLOB NOT NULL,
	PRIMARY KEY (store_name, identity_fingerprint)
);

CREATE TABLE IF NOT EXISTS store (
	name        TEXT PRIMARY KEY,
	ciphertext  BLOB NOT NULL,
	nonce       BLOB NOT NULL
);
`

// Querier is satisfied by both *sql.DB and *sql.Tx, letting DAOs accept
// either a bare connection or a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema. The parent directory is created with mode 0700 and
// a database file that does not exist yet is created with mode 0600,
// matching the on-disk layout secret-store expects.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create database file %s: %w", path, err)
	}
	f.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer model; avoid SQLITE_BUSY from internal pooling

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
