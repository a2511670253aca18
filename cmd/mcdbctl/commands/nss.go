// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
	"github.com/bpowers/mcdb/nss"
)

var nssGetByID bool

var nssMakeCmd = &cobra.Command{
	Use:   "nss-make <passwd|group|shadow|protocols|rpc> [input]",
	Short: "Build a name-service database from an /etc file",
	Long: `Build <dir>/<kind>.mcdb from the matching /etc file (default
/etc/<kind>).  Every entry is stored by name, and by id where the
database has one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := nss.ParseKind(args[0])
		if err != nil {
			return err
		}
		input := filepath.Join("/etc", kind.String())
		if len(args) == 2 {
			input = args[1]
		}
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		path := filepath.Join(cfg.Dir, kind.FileName())
		b, err := newBuilder(path)
		if err != nil {
			return err
		}
		if err := finishBuild(b, nss.Make(kind, f, b)); err != nil {
			return err
		}
		logger.Info("built name-service database", "kind", kind, "input", input, "path", path)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records\n", path, b.Stats().Records)
		return nil
	},
}

var nssGetCmd = &cobra.Command{
	Use:   "nss-get <kind> <name|id>",
	Short: "Look up a name-service entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := nss.ParseKind(args[0])
		if err != nil {
			return err
		}
		svc := nss.NewService(newRegistry())
		out := cmd.OutOrStdout()

		var id uint32
		if nssGetByID {
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}
			id = uint32(n)
		}

		// grow the buffer until the entry fits, the way libc callers retry
		// on ERANGE
		for size := 256; ; size *= 2 {
			buf := make([]byte, size)
			var rows [][]string
			switch kind {
			case nss.Passwd:
				var p nss.PasswdEntry
				p, err = lookup(svc, kind, args[1], id, nss.PasswdDecoder{}, buf)
				rows = [][]string{
					{"name", string(p.Name)},
					{"uid", strconv.FormatUint(uint64(p.UID), 10)},
					{"gid", strconv.FormatUint(uint64(p.GID), 10)},
					{"gecos", string(p.Gecos)},
					{"dir", string(p.Dir)},
					{"shell", string(p.Shell)},
				}
			case nss.Group:
				var g nss.GroupEntry
				g, err = lookup(svc, kind, args[1], id, nss.GroupDecoder{}, buf)
				rows = [][]string{
					{"name", string(g.Name)},
					{"gid", strconv.FormatUint(uint64(g.GID), 10)},
				}
				for _, m := range g.Members {
					rows = append(rows, []string{"member", string(m)})
				}
			case nss.Shadow:
				var sp nss.ShadowEntry
				sp, err = lookup(svc, kind, args[1], id, nss.ShadowDecoder{}, buf)
				rows = [][]string{
					{"name", string(sp.Name)},
					{"lastchg", strconv.FormatInt(sp.LastChange, 10)},
					{"expire", strconv.FormatInt(sp.Expire, 10)},
				}
			case nss.Protocols, nss.RPC:
				var e nss.NumberedEntry
				e, err = lookup(svc, kind, args[1], id, nss.NumberedDecoder{}, buf)
				rows = [][]string{
					{"name", string(e.Name)},
					{"number", strconv.FormatUint(uint64(e.Number), 10)},
				}
				for _, a := range e.Aliases {
					rows = append(rows, []string{"alias", string(a)})
				}
			default:
				var v []byte
				v, err = lookup(svc, kind, args[1], id, nss.BufDecoder{}, buf)
				rows = [][]string{{"value", printable(v, 0)}}
			}

			if errors.Is(err, mcdb.ErrBufferTooSmall) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%s %q: %s: %w", kind, args[1], nss.StatusOf(err), err)
			}
			printTable(out, []string{"Field", "Value"}, rows)
			return nil
		}
	},
}

// lookup finds name, or id when --id is set.
func lookup[T any](svc *nss.Service, kind nss.Kind, name string, id uint32, dec nss.Decoder[T], buf []byte) (T, error) {
	if nssGetByID {
		return nss.ByNumber(svc, kind, id, dec, buf)
	}
	return nss.ByName(svc, kind, name, dec, buf)
}

func init() {
	nssGetCmd.Flags().BoolVar(&nssGetByID, "id", false, "look up by numeric id instead of name")
}
