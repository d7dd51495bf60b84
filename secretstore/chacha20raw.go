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
	"encoding/binary"
	"fmt"
	"math/bits"
)

// This file implements the original Bernstein ChaCha20 stream cipher: a
// 256-bit key, a 64-bit nonce and a 64-bit block counter. This is the
// construction secret-store's on-disk format uses, not the IETF variant
// (RFC 8439) that golang.org/x/crypto/chacha20 exposes — that package's
// NewUnauthenticatedCipher only accepts a 12- or 24-byte nonce, so it
// cannot produce this 8-byte-nonce keystream. There is unavoidably no
// third-party library in play here; see DESIGN.md for the full account.
//
// The cipher is unauthenticated by design (per the format secret-store
// reads/writes): callers that need integrity must layer their own MAC.

const (
	chachaKeySize   = 32
	chachaNonceSize = 8
	chachaBlockSize = 64
)

var sigma = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

func chachaQuarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 16)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 12)
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 8)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 7)
	return a, b, c, d
}

// chachaBlock produces one 64-byte keystream block for the given key,
// 8-byte nonce and 64-bit counter.
func chachaBlock(key [chachaKeySize]byte, nonce [chachaNonceSize]byte, counter uint64) [chachaBlockSize]byte {
	var state [16]uint32
	state[0], state[1], state[2], state[3] = sigma[0], sigma[1], sigma[2], sigma[3]
	for i := 0; i < 8; i++ {
		state[4+i] = binary.LittleEndian.Uint32(key[i*4 : i*4+4])
	}
	state[12] = uint32(counter)
	state[13] = uint32(counter >> 32)
	state[14] = binary.LittleEndian.Uint32(nonce[0:4])
	state[15] = binary.LittleEndian.Uint32(nonce[4:8])

	working := state
	for i := 0; i < 10; i++ {
		working[0], working[4], working[8], working[12] = chachaQuarterRound(working[0], working[4], working[8], working[12])
		working[1], working[5], working[9], working[13] = chachaQuarterRound(working[1], working[5], working[9], working[13])
		working[2], working[6], working[10], working[14] = chachaQuarterRound(working[2], working[6], working[10], working[14])
		working[3], working[7], working[11], working[15] = chachaQuarterRound(working[3], working[7], working[11], working[15])

		working[0], working[5], working[10], working[15] = chachaQuarterRound(working[0], working[5], working[10], working[15])
		working[1], working[6], working[11], working[12] = chachaQuarterRound(working[1], working[6], working[11], working[12])
		working[2], working[7], working[8], working[13] = chachaQuarterRound(working[2], working[7], working[8], working[13])
		working[3], working[4], working[9], working[14] = chachaQuarterRound(working[3], working[4], working[9], working[14])
	}

	var out [chachaBlockSize]byte
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], working[i]+state[i])
	}
	return out
}

// chachaXOR encrypts (or, symmetrically, decrypts) src into dst using the
// raw ChaCha20 keystream starting at block counter 0.
func chachaXOR(key [chachaKeySize]byte, nonce [chachaNonceSize]byte, src []byte) []byte {
	dst := make([]byte, len(src))
	var counter uint64
	for offset := 0; offset < len(src); offset += chachaBlockSize {
		block := chachaBlock(key, nonce, counter)
		end := offset + chachaBlockSize
		if end > len(src) {
			end = len(src)
		}
		for i := offset; i < end; i++ {
			dst[i] = src[i] ^ block[i-offset]
		}
		counter++
	}
	return dst
}

// encryptPayload encrypts plaintext under key with the given 8-byte nonce,
// returning the ciphertext. Callers generate a fresh nonce per encryption.
func encryptPayload(key [chachaKeySize]byte, nonce [chachaNonceSize]byte, plaintext []byte) []byte {
	return chachaXOR(key, nonce, plaintext)
}

// decryptPayload reverses encryptPayload; ChaCha20 is its own inverse.
func decryptPayload(key [chachaKeySize]byte, nonce [chachaNonceSize]byte, ciphertext []byte) []byte {
	return chachaXOR(key, nonce, ciphertext)
}

func toKey(b []byte) ([chachaKeySize]byte, error) {
	var key [chachaKeySize]byte
	if len(b) != chachaKeySize {
		return key, fmt.Errorf("%w: data key must be %d bytes, got %d", ErrCryptoFailure, chachaKeySize, len(b))
	}
	copy(key[:], b)
	return key, nil
}

func toNonce(b []byte) ([chachaNonceSize]byte, error) {
	var nonce [chachaNonceSize]byte
	if len(b) != chachaNonceSize {
		return nonce, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrCryptoFailure, chachaNonceSize, len(b))
	}
	copy(nonce[:], b)
	return nonce, nil
}
