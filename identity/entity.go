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

// Package identity manages the P-256 identity keypairs secret-store binds
// to loaded SSH agent keys. An identity's private half, when present, is
// always protected by kdf.Pack derived from the owning SSH key.
package identity

import (
	"crypto/ecdsa"
)

// RawIdentity is the row shape persisted in the identities table.
// PrivateKey is nil for identities secret-store only knows about by public
// key (someone else's guardian target, never owned locally).
type RawIdentity struct {
	Fingerprint string
	PublicKey   []byte // SubjectPublicKeyInfo DER
	PrivateKey  []byte // seed(16) || encrypted PKCS#8 DER, or nil
}

// PublicIdentity is an identity secret-store can seal guardians to, but
// cannot open them with.
type PublicIdentity struct {
	Fingerprint string
	PublicKey   *ecdsa.PublicKey
}

// PrivateIdentity is a local identity secret-store can both seal to and
// open guardians with.
type PrivateIdentity struct {
	PublicIdentity
	PrivateKey *ecdsa.PrivateKey
	Seed       []byte // the 16-byte seed protecting PrivateKey at rest
}

// Zero clears the seed from memory. The ecdsa.PrivateKey's scalar is left
// to the garbage collector, matching the teacher's practice of zeroing
// only the bytes it owns directly (see kdf.Pack.Zero).
func (p *PrivateIdentity) Zero() {
	for i := range p.Seed {
		p.Seed[i] = 0
	}
}
