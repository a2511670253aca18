// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
)

var (
	dumpAll   bool
	dumpRaw   bool
	dumpWidth int
)

var dumpCmd = &cobra.Command{
	Use:   "dump <db>",
	Short: "List the records of a database in insertion order",
	Long: `List the records of a database in insertion order.  By default only
records with the default tag are shown; --all shows every record.  --raw
prints key:value lines suitable for "mcdbctl make".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return newRegistry().With(args[0], func(db *mcdb.DB) error {
			it := db.Iter()
			if dumpAll {
				it = db.IterAll()
			}
			var rows [][]string
			for {
				rec, err := it.Next()
				if errors.Is(err, mcdb.ErrNotFound) {
					break
				} else if err != nil {
					return err
				}
				if dumpRaw {
					if _, err := fmt.Fprintf(out, "%s:%s\n", rec.Key, rec.Value); err != nil {
						return err
					}
					continue
				}
				rows = append(rows, []string{
					strconv.FormatUint(uint64(rec.Pos), 10),
					tagString(rec.Tag),
					printable(rec.Key, dumpWidth),
					printable(rec.Value, dumpWidth),
				})
			}
			if !dumpRaw {
				printTable(out, []string{"Offset", "Tag", "Key", "Value"}, rows)
			}
			return nil
		})
	},
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpAll, "all", "a", false, "include records with any tag")
	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "print key:value lines instead of a table")
	dumpCmd.Flags().IntVar(&dumpWidth, "width", 64, "truncate keys and values to this many bytes (0 for no limit)")
}
