// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
)

var (
	testzeroCount int
	testzeroSize  int
)

var testzeroCmd = &cobra.Command{
	Use:   "testzero <db>",
	Short: "Build and verify a database of large zero-filled records",
	Long: `Build a database of --count records, keyed by their 4-byte big-endian
index, each holding --size zero bytes, then read back the first and last
record.  Useful to exercise large files and long records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if testzeroCount <= 0 || testzeroSize <= 0 {
			return fmt.Errorf("--count and --size must be positive")
		}
		path := dbPath(args[0])
		b, err := newBuilder(path)
		if err != nil {
			return err
		}

		zeros := make([]byte, testzeroSize)
		var buildErr error
		for i := 0; i < testzeroCount && buildErr == nil; i++ {
			var key [4]byte
			binary.BigEndian.PutUint32(key[:], uint32(i))
			buildErr = b.Add(key[:], zeros)
		}
		if err := finishBuild(b, buildErr); err != nil {
			return err
		}

		err = newRegistry().With(args[0], func(db *mcdb.DB) error {
			for _, i := range []int{0, testzeroCount - 1} {
				var key [4]byte
				binary.BigEndian.PutUint32(key[:], uint32(i))
				// zero-filled records have tag 0
				v, err := db.Get(key[:], 0)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				if len(v) != len(zeros)-1 || !bytes.Equal(v, zeros[1:]) {
					return fmt.Errorf("record %d: bad contents (%d bytes)", i, len(v))
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records of %d bytes ok (%d bytes total)\n",
			path, testzeroCount, testzeroSize, b.Stats().Bytes)
		return nil
	},
}

func init() {
	testzeroCmd.Flags().IntVar(&testzeroCount, "count", 1000, "number of records")
	testzeroCmd.Flags().IntVar(&testzeroSize, "size", 65524, "bytes of data per record")
}
