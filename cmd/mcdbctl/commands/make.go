// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
)

var (
	makeTag string
	makeSep string
)

var makeCmd = &cobra.Command{
	Use:   "make <db> [input]",
	Short: "Build a database from key/value lines",
	Long: `Build a database from lines of the form key<sep>value, read from input
or standard input.  Every record is stored under the same tag.  Keys may
repeat; all values are kept.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTag(makeTag)
		if err != nil {
			return err
		}
		if len(makeSep) != 1 {
			return fmt.Errorf("--sep must be a single byte, got %q", makeSep)
		}

		in := cmd.InOrStdin()
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		path := dbPath(args[0])
		b, err := newBuilder(path)
		if err != nil {
			return err
		}
		if err := finishBuild(b, addLines(in, b, tag, makeSep[0])); err != nil {
			return err
		}
		stats := b.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d bytes\n", path, stats.Records, stats.Bytes)
		return nil
	},
}

func init() {
	makeCmd.Flags().StringVar(&makeTag, "tag", string(rune(mcdb.TagDefault)), "tag stored with every record")
	makeCmd.Flags().StringVar(&makeSep, "sep", ":", "key/value separator")
}

func parseTag(s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("tag must be a single byte, got %q", s)
	}
	return s[0], nil
}

func addLines(r io.Reader, b *mcdb.Builder, tag, sep byte) error {
	s := bufio.NewScanner(bufio.NewReaderSize(r, 16*1024))
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for lineNo := 1; s.Scan(); lineNo++ {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		k, v, ok := bytes.Cut(line, []byte{sep})
		if !ok {
			return fmt.Errorf("line %d: missing %q separator", lineNo, sep)
		}
		if err := b.AddTagged(tag, k, v); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return s.Err()
}
