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
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

// marshalPublicKey encodes pub as an uncompressed SEC1 point (0x04 || X ||
// Y), manually via FillBytes to avoid the deprecated elliptic.Marshal,
// matching the encoding circl's P-256 HPKE KEM expects.
func marshalPublicKey(pub *ecdsa.PublicKey) []byte {
	out := make([]byte, 1+32+32)
	out[0] = 0x04
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:65])
	return out
}

// marshalPrivateScalar encodes priv's scalar as a fixed 32-byte big-endian
// value, the raw KEM private key format circl's P-256 scheme expects.
func marshalPrivateScalar(priv *ecdsa.PrivateKey) []byte {
	out := make([]byte, 32)
	priv.D.FillBytes(out)
	return out
}

// suite is the HPKE ciphersuite used to wrap store data keys: DHKEM(P-256,
// HKDF-SHA256) for the KEM, HKDF-SHA256 for the KDF, AES-256-GCM for the
// AEAD.
var suite = hpke.NewSuite(hpke.KEM_P256_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES256GCM)

var kem = hpke.KEM_P256_HKDF_SHA256.Scheme()

// info binds every HPKE context to this application and the store it
// protects, so a guardian sealed for one store can't be replayed as a
// guardian for another.
func info(storeName string) []byte {
	return []byte("secret-store/guardian/" + storeName)
}

// Manager seals and opens guardians.
type Manager struct {
	dao *DAO
}

// NewManager returns a guardian Manager over dao.
func NewManager(dao *DAO) *Manager { return &Manager{dao: dao} }

// CreateGuardian seals dataKey to pub's P-256 public key and persists the
// resulting guardian for (storeName, fingerprint).
func (m *Manager) CreateGuardian(ctx context.Context, q sqlitedb.Querier, storeName, fingerprint string, pub *ecdsa.PublicKey, dataKey []byte) error {
	rp, err := kem.UnmarshalBinaryPublicKey(marshalPublicKey(pub))
	if err != nil {
		return fmt.Errorf("hpke unmarshal public key: %w", err)
	}

	sender, err := suite.NewSender(rp, info(storeName))
	if err != nil {
		return fmt.Errorf("hpke new sender: %w", err)
	}

	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return fmt.Errorf("hpke setup: %w", err)
	}

	ct, err := sealer.Seal(dataKey, nil)
	if err != nil {
		return fmt.Errorf("hpke seal: %w", err)
	}

	return m.dao.Save(ctx, q, Guardian{
		StoreName:           storeName,
		IdentityFingerprint: fingerprint,
		Enc:                 enc,
		Ciphertext:          ct,
	})
}

// Open finds the guardian for (storeName, fingerprint) and opens it with
// priv, returning the store's data key.
func (m *Manager) Open(ctx context.Context, q sqlitedb.Querier, storeName, fingerprint string, priv *ecdsa.PrivateKey) ([]byte, error) {
	g, err := m.dao.Find(ctx, q, storeName, fingerprint)
	if err != nil {
		return nil, err
	}

	skR, err := kem.UnmarshalBinaryPrivateKey(marshalPrivateScalar(priv))
	if err != nil {
		return nil, fmt.Errorf("hpke unmarshal private key: %w", err)
	}

	receiver, err := suite.NewReceiver(skR, info(storeName))
	if err != nil {
		return nil, fmt.Errorf("hpke new receiver: %w", err)
	}

	opener, err := receiver.Setup(g.Enc)
	if err != nil {
		return nil, fmt.Errorf("hpke receiver setup: %w", err)
	}

	dataKey, err := opener.Open(g.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("hpke open: %w", err)
	}
	return dataKey, nil
}

// FindStoreNames returns the distinct stores any of fingerprints can open.
func (m *Manager) FindStoreNames(ctx context.Context, q sqlitedb.Querier, fingerprints []string) ([]string, error) {
	return m.dao.FindStoreNames(ctx, q, fingerprints)
}

// DeleteStoreGuardians removes every guardian for storeName.
func (m *Manager) DeleteStoreGuardians(ctx context.Context, q sqlitedb.Querier, storeName string) error {
	return m.dao.DeleteStoreGuardians(ctx, q, storeName)
}
