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
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mxczfr/secret-store/guardian"
	"github.com/mxczfr/secret-store/identity"
	"github.com/mxczfr/secret-store/internal/logger"
	"github.com/mxczfr/secret-store/internal/sqlitedb"
	"github.com/mxczfr/secret-store/store"
)

// Coordinator composes the identity, guardian and store subsystems into
// secret-store's user-facing operations. It is built with its dependencies
// injected at construction time rather than as Singletons, so tests can
// supply fakes and multiple Coordinators (e.g. in tests) never share
// hidden global state.
type Coordinator struct {
	db          *sql.DB
	identities  *identity.Manager
	identityDAO *identity.DAO
	guardians   *guardian.Manager
	stores      *store.DAO
	log         logger.Logger
}

// New builds a Coordinator over an already-opened database and the given
// subsystem managers.
func New(db *sql.DB, identities *identity.Manager, identityDAO *identity.DAO, guardians *guardian.Manager, stores *store.DAO, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Coordinator{
		db:          db,
		identities:  identities,
		identityDAO: identityDAO,
		guardians:   guardians,
		stores:      stores,
		log:         log,
	}
}

// NewStore creates a brand-new store named name with the given fields,
// generates a fresh data key, encrypts the payload, and seals a guardian
// for every currently-known private identity.
func (c *Coordinator) NewStore(ctx context.Context, name string, fields []store.Field) error {
	if !VerifyName(name) {
		return ErrInvalidName
	}

	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return fmt.Errorf("%w: generate data key: %v", ErrCryptoFailure, err)
	}
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("%w: generate nonce: %v", ErrCryptoFailure, err)
	}

	payload, err := json.Marshal(fieldsToMap(fields))
	if err != nil {
		return fmt.Errorf("marshal store payload: %w", err)
	}

	key, err := toKey(dataKey)
	if err != nil {
		return err
	}
	ciphertext := encryptPayload(key, nonce, payload)

	return sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		privates, err := c.collectPrivateIdentities(ctx, tx)
		if err != nil {
			return err
		}
		if len(privates) == 0 {
			return &NoIdentityForStoreError{StoreName: name}
		}

		if err := c.stores.Save(ctx, tx, store.EncryptedStore{Name: name, Ciphertext: ciphertext, Nonce: nonce[:]}); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrNameAlreadyUsed
			}
			return &StorageFailureError{Op: "save store", Err: err}
		}

		for _, priv := range privates {
			if err := c.guardians.CreateGuardian(ctx, tx, name, priv.Fingerprint, priv.PublicKey, dataKey); err != nil {
				return fmt.Errorf("seal guardian for %s: %w", priv.Fingerprint, err)
			}
		}
		return nil
	})
}

// GetEncryptedStore returns the raw encrypted row for name.
func (c *Coordinator) GetEncryptedStore(ctx context.Context, name string) (store.EncryptedStore, error) {
	enc, err := c.stores.Find(ctx, c.db, name)
	if err != nil {
		if err == store.ErrNotFound {
			return store.EncryptedStore{}, &NotFoundError{Kind: "store", Key: name}
		}
		return store.EncryptedStore{}, &StorageFailureError{Op: "find store", Err: err}
	}
	return enc, nil
}

// GetStore decrypts and returns the store named name, using whichever
// currently-loaded identity holds a guardian for it.
func (c *Coordinator) GetStore(ctx context.Context, name string) (*store.Store, error) {
	var result *store.Store
	err := sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		enc, err := c.stores.Find(ctx, tx, name)
		if err != nil {
			if err == store.ErrNotFound {
				return &NotFoundError{Kind: "store", Key: name}
			}
			return &StorageFailureError{Op: "find store", Err: err}
		}

		dataKey, err := c.resolveKey(ctx, tx, name)
		if err != nil {
			return err
		}

		key, err := toKey(dataKey)
		if err != nil {
			return err
		}
		nonce, err := toNonce(enc.Nonce)
		if err != nil {
			return err
		}

		plaintext := decryptPayload(key, nonce, enc.Ciphertext)

		var fields map[string]string
		if err := json.Unmarshal(plaintext, &fields); err != nil {
			return fmt.Errorf("%w: unmarshal store payload: %v", ErrCryptoFailure, err)
		}

		s := &store.Store{Name: name}
		for k, v := range fields {
			s.Set(k, v)
		}
		result = s
		return nil
	})
	return result, err
}

// UpdateStore re-encrypts name with newFields, reusing the existing data
// key (recovered via resolveKey) so existing guardians remain valid.
func (c *Coordinator) UpdateStore(ctx context.Context, name string, newFields []store.Field) error {
	return sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		enc, err := c.stores.Find(ctx, tx, name)
		if err != nil {
			if err == store.ErrNotFound {
				return &NotFoundError{Kind: "store", Key: name}
			}
			return &StorageFailureError{Op: "find store", Err: err}
		}

		dataKey, err := c.resolveKey(ctx, tx, name)
		if err != nil {
			return err
		}
		key, err := toKey(dataKey)
		if err != nil {
			return err
		}

		// existing fields are preserved unless overwritten by newFields
		nonce, err := toNonce(enc.Nonce)
		if err != nil {
			return err
		}
		plaintext := decryptPayload(key, nonce, enc.Ciphertext)
		var fields map[string]string
		if err := json.Unmarshal(plaintext, &fields); err != nil {
			return fmt.Errorf("%w: unmarshal store payload: %v", ErrCryptoFailure, err)
		}
		for _, f := range newFields {
			fields[f.Name] = f.Value
		}

		payload, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshal store payload: %w", err)
		}

		var newNonce [8]byte
		if _, err := rand.Read(newNonce[:]); err != nil {
			return fmt.Errorf("%w: generate nonce: %v", ErrCryptoFailure, err)
		}
		ciphertext := encryptPayload(key, newNonce, payload)

		return c.stores.Update(ctx, tx, store.EncryptedStore{Name: name, Ciphertext: ciphertext, Nonce: newNonce[:]})
	})
}

// DeleteStore removes name and every guardian sealed to it.
func (c *Coordinator) DeleteStore(ctx context.Context, name string) error {
	return sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if err := c.stores.Delete(ctx, tx, name); err != nil {
			if err == store.ErrNotFound {
				return &NotFoundError{Kind: "store", Key: name}
			}
			return &StorageFailureError{Op: "delete store", Err: err}
		}
		if err := c.guardians.DeleteStoreGuardians(ctx, tx, name); err != nil {
			return &StorageFailureError{Op: "delete guardians", Err: err}
		}
		return nil
	})
}

// ShareStore grants the identity with the given fingerprint access to an
// existing store, sealing a new guardian for it with the store's existing
// data key.
func (c *Coordinator) ShareStore(ctx context.Context, name, fingerprint string) error {
	return sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := c.stores.Find(ctx, tx, name); err != nil {
			if err == store.ErrNotFound {
				return &NotFoundError{Kind: "store", Key: name}
			}
			return &StorageFailureError{Op: "find store", Err: err}
		}

		dataKey, err := c.resolveKey(ctx, tx, name)
		if err != nil {
			return err
		}

		raw, err := c.identityDAO.FindByFingerprint(ctx, tx, fingerprint)
		if err != nil {
			if err == identity.ErrNotFound {
				return &NotFoundError{Kind: "identity", Key: fingerprint}
			}
			return &StorageFailureError{Op: "find identity", Err: err}
		}

		pub, err := identity.ParsePublicKey(raw)
		if err != nil {
			return err
		}

		if err := c.guardians.CreateGuardian(ctx, tx, name, fingerprint, pub, dataKey); err != nil {
			if errors.Is(err, guardian.ErrDuplicate) {
				return nil // already shared with this identity; idempotent
			}
			return fmt.Errorf("seal guardian for %s: %w", fingerprint, err)
		}
		return nil
	})
}

// ListStoreNames returns the names of every store with at least one
// guardian openable by a currently-available private identity. This never
// decrypts a store; it only checks which guardians exist.
func (c *Coordinator) ListStoreNames(ctx context.Context) ([]string, error) {
	var names []string
	err := sqlitedb.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		privates, err := c.collectPrivateIdentities(ctx, tx)
		if err != nil {
			return err
		}
		fingerprints := make([]string, len(privates))
		for i, priv := range privates {
			fingerprints[i] = priv.Fingerprint
		}

		found, err := c.guardians.FindStoreNames(ctx, tx, fingerprints)
		if err != nil {
			return &StorageFailureError{Op: "list stores", Err: err}
		}
		names = found
		return nil
	})
	return names, err
}

// resolveKey finds a private identity currently loaded in the agent that
// holds a guardian for name, and opens that guardian to recover the
// store's data key.
func (c *Coordinator) resolveKey(ctx context.Context, tx *sql.Tx, name string) ([]byte, error) {
	privates, err := c.collectPrivateIdentities(ctx, tx)
	if err != nil {
		return nil, err
	}

	for _, priv := range privates {
		dataKey, err := c.guardians.Open(ctx, tx, name, priv.Fingerprint, priv.PrivateKey)
		if err == nil {
			return dataKey, nil
		}
		if err != guardian.ErrNotFound {
			return nil, fmt.Errorf("%w: guardian %s/%s failed to open: %v", ErrCryptoFailure, name, priv.Fingerprint, err)
		}
	}
	return nil, &NoIdentityForStoreError{StoreName: name}
}

func (c *Coordinator) collectPrivateIdentities(ctx context.Context, tx *sql.Tx) ([]identity.PrivateIdentity, error) {
	var out []identity.PrivateIdentity
	for priv, err := range c.identities.GetPrivateIdentities(ctx, tx) {
		if err != nil {
			return nil, &StorageFailureError{Op: "load private identities", Err: err}
		}
		out = append(out, priv)
	}
	return out, nil
}

func fieldsToMap(fields []store.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}
