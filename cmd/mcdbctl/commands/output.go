// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package commands

import (
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
)

// printTable writes rows under headers in a borderless, left-aligned table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(rows)
	table.Render()
}

// printable renders b for a terminal: valid UTF-8 without control
// characters as is, anything else Go-quoted.  Long values are truncated
// to limit bytes.
func printable(b []byte, limit int) string {
	truncated := false
	if limit > 0 && len(b) > limit {
		b = b[:limit]
		truncated = true
	}
	s := string(b)
	if !utf8.ValidString(s) || hasControl(s) {
		s = strconv.Quote(s)
	}
	if truncated {
		s += "..."
	}
	return s
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

func tagString(tag byte) string {
	if tag == 0 {
		return ""
	}
	return printable([]byte{tag}, 0)
}
