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

// Command secret-store is the CLI front end for the local secret store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mxczfr/secret-store/internal/config"
	"github.com/mxczfr/secret-store/internal/logger"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "secret-store",
	Short: "A local, multi-identity secret store bound to your SSH agent",
	Long: `secret-store keeps per-project secrets encrypted at rest, wrapped so
that only the SSH keys currently loaded in your agent can unlock them.

Identities are created from whatever keys your ssh-agent already has
loaded; stores are plain field/value bags encrypted with a fresh key on
every "store new", shared across identities via HPKE-sealed guardians.`,
}

// appLogger is shared by every subcommand.
var appLogger logger.Logger

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cobra.OnInitialize(func() {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		level := logger.ParseLevel(cfg.Logging.Level)
		if debug {
			level = logger.DebugLevel
		}
		format := logger.ParseFormat(cfg.Logging.Format)
		appLogger = logger.NewLoggerWithFormat(os.Stderr, level, format)
	})

	// Subcommands register themselves in their own files:
	// - identity.go: identitySyncCmd, identityListCmd
	// - store.go: storeNewCmd, storeShowCmd, storeListCmd, storeRmCmd, storeShareCmd
}

// loadConfig reads the optional config file, falling back to defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(config.DefaultConfigPath())
}
