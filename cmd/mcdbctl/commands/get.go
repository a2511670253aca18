// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
)

var (
	getTag string
	getAll bool
)

var getCmd = &cobra.Command{
	Use:   "get <db> <key>",
	Short: "Print the value(s) stored under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTag(getTag)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		return newRegistry().With(args[0], func(db *mcdb.DB) error {
			f := db.FindString(args[1], tag)
			found := false
			for {
				rec, err := f.Next()
				if errors.Is(err, mcdb.ErrNotFound) {
					break
				} else if err != nil {
					return err
				}
				found = true
				if _, err := fmt.Fprintf(out, "%s\n", rec.Value); err != nil {
					return err
				}
				if !getAll {
					break
				}
			}
			if !found {
				return fmt.Errorf("%q: %w", args[1], mcdb.ErrNotFound)
			}
			return nil
		})
	},
}

func init() {
	getCmd.Flags().StringVar(&getTag, "tag", string(rune(mcdb.TagDefault)), "tag to match")
	getCmd.Flags().BoolVarP(&getAll, "all", "a", false, "print every matching value")
}
