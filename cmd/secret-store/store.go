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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mxczfr/secret-store/secretstore"
	"github.com/mxczfr/secret-store/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage encrypted stores",
}

var storeNewSecret bool

var storeNewCmd = &cobra.Command{
	Use:   "new <name> <field>",
	Short: "Set a field in a store, creating the store if it doesn't exist",
	Args:  cobra.ExactArgs(2),
	RunE:  runStoreNew,
}

var storeShowJSON bool
var storeShowField string

var storeShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a store's fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreShow,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every store",
	RunE:  runStoreList,
}

var storeRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a store",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRm,
}

var storeShareCmd = &cobra.Command{
	Use:   "share <name> <fingerprint>",
	Short: "Grant another identity access to a store",
	Args:  cobra.ExactArgs(2),
	RunE:  runStoreShare,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeNewCmd, storeShowCmd, storeListCmd, storeRmCmd, storeShareCmd)

	storeNewCmd.Flags().BoolVarP(&storeNewSecret, "secret", "s", false, "prompt for the value without echoing it")

	storeShowCmd.Flags().BoolVar(&storeShowJSON, "json", false, "print the store as JSON")
	storeShowCmd.Flags().StringVar(&storeShowField, "field", "", "print only this field's value")
}

func runStoreNew(cmd *cobra.Command, args []string) error {
	name, field := args[0], args[1]

	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	ctx := context.Background()
	existing, err := coord.GetStore(ctx, name)
	var notFound *secretstore.NotFoundError
	switch {
	case err == nil:
		if _, has := existing.Get(field); has {
			if !confirm(fmt.Sprintf("Field %q already exists in %q. Override?", field, name)) {
				fmt.Println("Aborted")
				return nil
			}
		}
	case errors.As(err, &notFound):
		// store doesn't exist yet; it will be created below
	default:
		return err
	}

	value, err := readValue(storeNewSecret)
	if err != nil {
		return err
	}

	if existing != nil {
		return coord.UpdateStore(ctx, name, []store.Field{{Name: field, Value: value}})
	}
	return coord.NewStore(ctx, name, []store.Field{{Name: field, Value: value}})
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	name := args[0]

	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	s, err := coord.GetStore(context.Background(), name)
	if err != nil {
		return err
	}

	if storeShowField != "" {
		val, ok := s.Get(storeShowField)
		if !ok {
			return &secretstore.NotFoundError{Kind: "field", Key: storeShowField}
		}
		fmt.Println(val)
		return nil
	}

	if storeShowJSON {
		data, err := json.MarshalIndent(s.AsMap(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("=== %s ===\n", s.Name)
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Name)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := s.Get(k)
		fmt.Printf("%s: %s\n", k, v)
	}
	return nil
}

func runStoreList(cmd *cobra.Command, args []string) error {
	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	names, err := coord.ListStoreNames(context.Background())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runStoreRm(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !confirm(fmt.Sprintf("Delete store %q?", name)) {
		fmt.Println("Aborted")
		return nil
	}

	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	return coord.DeleteStore(context.Background(), name)
}

func runStoreShare(cmd *cobra.Command, args []string) error {
	name, fingerprint := args[0], args[1]

	coord, closer, err := buildCoordinator()
	if err != nil {
		return err
	}
	defer closer()

	return coord.ShareStore(context.Background(), name, fingerprint)
}

// confirm asks a yes/no question on stdin, defaulting to "no".
func confirm(message string) bool {
	fmt.Printf("%s (y/n) ", message)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// readValue reads a field's value from stdin, hiding input when secret is true.
func readValue(secret bool) (string, error) {
	if secret {
		fmt.Print("Value: ")
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read secret value: %w", err)
		}
		return string(data), nil
	}

	fmt.Print("Value: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimRight(line, "\n"), nil
}
