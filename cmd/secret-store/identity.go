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
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities bound to your SSH agent",
}

var identitySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create an identity for every SSH agent key that doesn't have one yet",
	RunE:  runIdentitySync,
}

var identityListAll bool

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known identities",
	RunE:  runIdentityList,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identitySyncCmd)
	identityCmd.AddCommand(identityListCmd)

	identityListCmd.Flags().BoolVar(&identityListAll, "all", false, "list every known identity, not just ones owned by the current agent")
}

func runIdentitySync(cmd *cobra.Command, args []string) error {
	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	created, err := coord.CreateIdentitiesForSync(context.Background())
	if err != nil {
		return err
	}

	if len(created) == 0 {
		fmt.Println("No identity created")
		return nil
	}
	for _, fp := range created {
		fmt.Printf("Created identity %s\n", fp)
	}
	return nil
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	identities, err := coord.ListIdentities(context.Background(), identityListAll)
	if err != nil {
		return err
	}

	if len(identities) == 0 {
		fmt.Println("No identity was found. Sync identities with secret-store identity sync")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINGERPRINT")
	for _, fp := range identities {
		fmt.Fprintln(w, fp)
	}
	return w.Flush()
}
