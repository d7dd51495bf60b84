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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"iter"

	"github.com/youmark/pkcs8"

	"github.com/mxczfr/secret-store/internal/logger"
	"github.com/mxczfr/secret-store/internal/sqlitedb"
	"github.com/mxczfr/secret-store/kdf"
	"github.com/mxczfr/secret-store/sshagent"
)

// protectionOpts is the passphrase-based protection scheme for a private
// identity's P-256 key: PBKDF2 with HMAC-SHA512, wrapping with AES-128-CBC.
var protectionOpts = &pkcs8.Opts{
	Cipher: pkcs8.AES128CBC,
	KDFOpts: pkcs8.PBKDF2Opts{
		SaltSize:       16,
		IterationCount: 390_000,
		HMACHash:       crypto.SHA512,
	},
}

// Manager creates and reads identities, binding each to whatever SSH keys
// are currently loaded in the agent.
type Manager struct {
	dao   *DAO
	agent *sshagent.Agent
	log   logger.Logger
}

// NewManager builds an identity Manager over dao, using agent to reach
// SSH-agent-bound keys.
func NewManager(dao *DAO, agent *sshagent.Agent, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Manager{dao: dao, agent: agent, log: log}
}

// CreateIdentities generates a fresh P-256 identity for every agent key
// that does not already have one, returning the fingerprints created.
// Existing fingerprints are skipped, not overwritten.
func (m *Manager) CreateIdentities(ctx context.Context, q sqlitedb.Querier) ([]string, error) {
	keys, err := m.agent.ListKeys()
	if err != nil {
		return nil, err
	}

	var created []string
	for _, key := range keys {
		if _, err := m.dao.FindByFingerprint(ctx, q, key.Fingerprint); err == nil {
			m.log.Debug("identity already exists", logger.String("fingerprint", key.Fingerprint))
			continue
		} else if err != ErrNotFound {
			return created, err
		}

		raw, err := m.createPrivateIdentity(key)
		if err != nil {
			return created, fmt.Errorf("create identity for %s: %w", key.Fingerprint, err)
		}

		if err := m.dao.Save(ctx, q, raw); err != nil {
			return created, err
		}
		created = append(created, key.Fingerprint)
	}

	return created, nil
}

func (m *Manager) createPrivateIdentity(key sshagent.Key) (RawIdentity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return RawIdentity{}, fmt.Errorf("generate p256 key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return RawIdentity{}, fmt.Errorf("marshal public key: %w", err)
	}

	sign := func(seed []byte) ([]byte, error) { return m.agent.Sign(key, seed) }
	pack, seed, err := kdf.New(sign)
	if err != nil {
		return RawIdentity{}, err
	}
	defer pack.Zero()

	privDER, err := pkcs8.MarshalPrivateKey(priv, pack.WrapKey[:], protectionOpts)
	if err != nil {
		return RawIdentity{}, fmt.Errorf("marshal encrypted private key: %w", err)
	}

	blob := make([]byte, 0, len(seed)+len(privDER))
	blob = append(blob, seed...)
	blob = append(blob, privDER...)

	return RawIdentity{
		Fingerprint: key.Fingerprint,
		PublicKey:   pubDER,
		PrivateKey:  blob,
	}, nil
}

// GetIdentities lazily yields every known identity's public half.
func (m *Manager) GetIdentities(ctx context.Context, q sqlitedb.Querier) iter.Seq2[PublicIdentity, error] {
	return func(yield func(PublicIdentity, error) bool) {
		rows, err := m.dao.FindAll(ctx, q)
		if err != nil {
			yield(PublicIdentity{}, err)
			return
		}
		for _, raw := range rows {
			pub, err := toPublicIdentity(raw)
			if !yield(pub, err) {
				return
			}
		}
	}
}

// GetIdentitiesBasedOnAgent lazily yields only the identities whose
// fingerprint matches a key currently loaded in the agent.
func (m *Manager) GetIdentitiesBasedOnAgent(ctx context.Context, q sqlitedb.Querier) iter.Seq2[PublicIdentity, error] {
	return func(yield func(PublicIdentity, error) bool) {
		keys, err := m.agent.ListKeys()
		if err != nil {
			yield(PublicIdentity{}, err)
			return
		}

		fingerprints := make([]string, len(keys))
		for i, k := range keys {
			fingerprints[i] = k.Fingerprint
		}

		rows, err := m.dao.FindByFingerprints(ctx, q, fingerprints)
		if err != nil {
			yield(PublicIdentity{}, err)
			return
		}
		for _, raw := range rows {
			pub, err := toPublicIdentity(raw)
			if !yield(pub, err) {
				return
			}
		}
	}
}

// GetPrivateIdentities lazily yields every identity the agent can currently
// decrypt: one agent signature per stored identity, so callers that break
// out early avoid unnecessary agent round-trips.
func (m *Manager) GetPrivateIdentities(ctx context.Context, q sqlitedb.Querier) iter.Seq2[PrivateIdentity, error] {
	return func(yield func(PrivateIdentity, error) bool) {
		keys, err := m.agent.ListKeys()
		if err != nil {
			yield(PrivateIdentity{}, err)
			return
		}
		byFingerprint := make(map[string]sshagent.Key, len(keys))
		for _, k := range keys {
			byFingerprint[k.Fingerprint] = k
		}

		rows, err := m.dao.FindAll(ctx, q)
		if err != nil {
			yield(PrivateIdentity{}, err)
			return
		}

		for _, raw := range rows {
			if raw.PrivateKey == nil {
				continue
			}
			key, ok := byFingerprint[raw.Fingerprint]
			if !ok {
				continue
			}

			priv, err := m.openPrivateIdentity(raw, key)
			if !yield(priv, err) {
				return
			}
		}
	}
}

func (m *Manager) openPrivateIdentity(raw RawIdentity, key sshagent.Key) (PrivateIdentity, error) {
	if len(raw.PrivateKey) <= kdf.SeedSize {
		return PrivateIdentity{}, fmt.Errorf("identity %s: malformed private key blob", raw.Fingerprint)
	}
	seed := raw.PrivateKey[:kdf.SeedSize]
	privDER := raw.PrivateKey[kdf.SeedSize:]

	sign := func(s []byte) ([]byte, error) { return m.agent.Sign(key, s) }
	pack, err := kdf.FromSeed(sign, seed)
	if err != nil {
		return PrivateIdentity{}, err
	}
	defer pack.Zero()

	parsed, err := pkcs8.ParsePKCS8PrivateKey(privDER, pack.WrapKey[:])
	if err != nil {
		return PrivateIdentity{}, fmt.Errorf("decrypt identity %s: %w", raw.Fingerprint, err)
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return PrivateIdentity{}, fmt.Errorf("identity %s: unexpected key type %T", raw.Fingerprint, parsed)
	}

	seedCopy := make([]byte, len(seed))
	copy(seedCopy, seed)

	return PrivateIdentity{
		PublicIdentity: PublicIdentity{Fingerprint: raw.Fingerprint, PublicKey: &priv.PublicKey},
		PrivateKey:     priv,
		Seed:           seedCopy,
	}, nil
}

func toPublicIdentity(raw RawIdentity) (PublicIdentity, error) {
	ecdsaPub, err := ParsePublicKey(raw)
	if err != nil {
		return PublicIdentity{}, err
	}
	return PublicIdentity{Fingerprint: raw.Fingerprint, PublicKey: ecdsaPub}, nil
}

// ParsePublicKey decodes the SubjectPublicKeyInfo DER stored in raw into an
// ECDSA P-256 public key.
func ParsePublicKey(raw RawIdentity) (*ecdsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(raw.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key for %s: %w", raw.Fingerprint, err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("identity %s: unexpected public key type %T", raw.Fingerprint, pub)
	}
	return ecdsaPub, nil
}
