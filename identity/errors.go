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

import "errors"

// ErrNotFound is returned when no identity matches the requested fingerprint.
var ErrNotFound = errors.New("identity: not found")

// ErrDuplicate is returned when an identity with the same fingerprint already exists.
var ErrDuplicate = errors.New("identity: already exists")

// ErrNoPrivateKey is returned when an operation needs a private identity
// but only a public one was found.
var ErrNoPrivateKey = errors.New("identity: no private key material for this identity")
