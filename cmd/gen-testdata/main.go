// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata writes a million key:value lines suitable for
// `mcdbctl make`, or for testdata.large.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/bpowers/mcdb/internal/testdata"
)

const nPairs = 1000000

func main() {
	var seedBytes [8]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		fmt.Fprintf(os.Stderr, "crand.Read: %s\n", err)
		os.Exit(1)
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))

	if err := testdata.Write(os.Stdout, nPairs, seed); err != nil {
		fmt.Fprintf(os.Stderr, "gen-testdata: %s\n", err)
		os.Exit(1)
	}
}
