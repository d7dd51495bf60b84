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

// Package kdf derives the per-identity wrap key secret-store uses to
// protect an identity's private key at rest, binding that key to whatever
// SSH key is currently loaded in the agent.
package kdf

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// SeedSize is the size, in bytes, of the random seed signed by the agent.
const SeedSize = 16

const (
	wrapKeySize = 32
	ivSize      = 16
	okmSize     = wrapKeySize + ivSize
	iterations  = 390_000
)

// Pack is the derived key material protecting one identity's private key.
type Pack struct {
	WrapKey [32]byte
	IV      [16]byte
}

// Zero overwrites the derived key material. Callers should call this as
// soon as the pack is no longer needed.
func (p *Pack) Zero() {
	for i := range p.WrapKey {
		p.WrapKey[i] = 0
	}
	for i := range p.IV {
		p.IV[i] = 0
	}
}

// signFunc matches the one real method secret-store needs from an agent
// key, letting New/FromSeed stay agnostic of the concrete agent key type.
type signFunc func(seed []byte) ([]byte, error)

// New derives a fresh Pack from a freshly generated random seed, returning
// the seed so it can be persisted alongside the protected private key.
func New(sign signFunc) (*Pack, []byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, fmt.Errorf("generate seed: %w", err)
	}
	pack, err := FromSeed(sign, seed)
	if err != nil {
		return nil, nil, err
	}
	return pack, seed, nil
}

// FromSeed re-derives the Pack for a known seed, by asking the agent to
// sign it again. This only reproduces the original Pack when signed with
// the same deterministic-signing key as at creation time.
func FromSeed(sign signFunc, seed []byte) (*Pack, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("kdf: seed must be %d bytes, got %d", SeedSize, len(seed))
	}

	sig, err := sign(seed)
	if err != nil {
		return nil, fmt.Errorf("sign seed: %w", err)
	}
	defer zeroBytes(sig)

	okm := pbkdf2.Key(sig, seed, iterations, okmSize, sha512.New)

	var pack Pack
	copy(pack.WrapKey[:], okm[:wrapKeySize])
	copy(pack.IV[:], okm[wrapKeySize:])
	zeroBytes(okm)

	return &pack, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
