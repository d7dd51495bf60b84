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

package main

import (
	"errors"
	"fmt"

	"github.com/mxczfr/secret-store/guardian"
	"github.com/mxczfr/secret-store/identity"
	"github.com/mxczfr/secret-store/internal/sqlitedb"
	"github.com/mxczfr/secret-store/secretstore"
	"github.com/mxczfr/secret-store/sshagent"
	"github.com/mxczfr/secret-store/store"
)

// buildCoordinator wires a Coordinator over the on-disk database and a
// freshly dialed ssh-agent connection. Callers must call the returned
// closer once done.
func buildCoordinator() (*secretstore.Coordinator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sqlitedb.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	a, err := sshagent.Dial()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	identityDAO := identity.NewDAO()
	idMgr := identity.NewManager(identityDAO, a, appLogger)
	guardianMgr := guardian.NewManager(guardian.NewDAO())
	storeDAO := store.NewDAO()

	coord := secretstore.New(db, idMgr, identityDAO, guardianMgr, storeDAO, appLogger)

	closer := func() {
		a.Close()
		db.Close()
	}
	return coord, closer, nil
}

// exitCodeFor maps a command error to the process exit code: 0 success,
// 2 for an invalid store name (secretstore.ErrInvalidName), 1 for every
// other error, including not found, wrong identity loaded and bad arguments.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, secretstore.ErrInvalidName) {
		return 2
	}
	return 1
}
