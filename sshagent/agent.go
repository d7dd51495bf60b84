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

// Package sshagent adapts a running ssh-agent into the deterministic
// signing primitive secret-store's key-derivation kit needs.
//
// Only Ed25519 and RSA agent keys are exposed: both produce deterministic
// signatures over identical input, which the key derivation in package kdf
// depends on to reproduce the same wrap key from the same seed. ECDSA agent
// keys sign with fresh per-call randomness and are filtered out.
package sshagent

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ErrNoAgent is returned when SSH_AUTH_SOCK is unset or unreachable.
var ErrNoAgent = errors.New("sshagent: no ssh-agent reachable")

// ErrNoSSHKeys is returned when the agent has no Ed25519 or RSA key loaded.
var ErrNoSSHKeys = errors.New("sshagent: no usable ssh key found in agent")

// Key is a usable agent key: deterministic-signing (Ed25519 or RSA) and
// identified by its hex SHA-256 fingerprint (see Fingerprint).
type Key struct {
	PublicKey   ssh.PublicKey
	Comment     string
	Fingerprint string
}

// Agent is a thin wrapper over a connected ssh-agent.
type Agent struct {
	ext agent.ExtendedAgent
}

// Dial connects to the ssh-agent referenced by SSH_AUTH_SOCK.
func Dial() (*Agent, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, ErrNoAgent
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAgent, err)
	}

	client := agent.NewClient(conn)
	ext, ok := client.(agent.ExtendedAgent)
	if !ok {
		return nil, fmt.Errorf("%w: agent does not support extended operations", ErrNoAgent)
	}
	return &Agent{ext: ext}, nil
}

// Fingerprint returns the lowercase hex SHA-256 digest of pub's wire
// encoding. Unlike OpenSSH's "SHA256:" base64 form, it carries no prefix;
// secret-store uses the raw hex digest as a stable, filesystem/SQL safe key.
func Fingerprint(pub ssh.PublicKey) string {
	sum := sha256.Sum256(pub.Marshal())
	return fmt.Sprintf("%x", sum)
}

// ListKeys returns the agent's Ed25519 and RSA keys. ECDSA keys, if present,
// are silently skipped: their signatures are not reproducible across calls.
func (a *Agent) ListKeys() ([]Key, error) {
	identities, err := a.ext.List()
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}

	var keys []Key
	for _, id := range identities {
		pub, err := ssh.ParsePublicKey(id.Marshal())
		if err != nil {
			continue
		}
		switch pub.Type() {
		case ssh.KeyAlgoED25519, ssh.KeyAlgoRSA:
			keys = append(keys, Key{
				PublicKey:   pub,
				Comment:     id.Comment,
				Fingerprint: Fingerprint(pub),
			})
		}
	}

	if len(keys) == 0 {
		return nil, ErrNoSSHKeys
	}
	return keys, nil
}

// Sign asks the agent to sign data with key. For Ed25519 and RSA keys this
// is deterministic: the same (key, data) pair always yields the same
// signature bytes, which is the property package kdf relies on.
func (a *Agent) Sign(key Key, data []byte) ([]byte, error) {
	sig, err := a.ext.Sign(key.PublicKey, data)
	if err != nil {
		return nil, fmt.Errorf("agent sign: %w", err)
	}
	return sig.Blob, nil
}

// Close releases the underlying connection, if the agent client supports it.
func (a *Agent) Close() error {
	if closer, ok := a.ext.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
