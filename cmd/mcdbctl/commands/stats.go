// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
)

var statsBuckets bool

var statsCmd = &cobra.Command{
	Use:   "stats <db>",
	Short: "Show size and hash table statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return newRegistry().With(args[0], func(db *mcdb.DB) error {
			s := db.Stats()
			printTable(out, []string{"Stat", "Value"}, [][]string{
				{"bytes", strconv.FormatUint(s.Bytes, 10)},
				{"records", strconv.FormatUint(s.Records, 10)},
				{"records end", strconv.FormatUint(uint64(s.RecordsEnd), 10)},
				{"slots", strconv.FormatUint(s.Slots, 10)},
				{"load factor", fmt.Sprintf("%.3f", s.LoadFactor())},
				{"empty buckets", strconv.Itoa(s.EmptyBuckets)},
				{"longest bucket", strconv.FormatUint(uint64(s.LongestBucket), 10)},
				{"max probe", strconv.FormatUint(uint64(s.MaxProbe), 10)},
			})
			if statsBuckets {
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(s.Buckets))
				for i, n := range s.Buckets {
					rows = append(rows, []string{strconv.Itoa(i), strconv.FormatUint(uint64(n), 10)})
				}
				printTable(out, []string{"Bucket", "Records"}, rows)
			}
			return nil
		})
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsBuckets, "buckets", false, "also list records per bucket")
}
