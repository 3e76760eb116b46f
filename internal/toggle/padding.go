// SPDX-License-Identifier: MPL-2.0

package toggle

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// padAttr is the start-marker attribute that remembers the whitespace inside
// the comments a forward run uncommented, for example btm-pad="0:s:s 2:ns:n".
// Entries are node index, leading and trailing whitespace, with space, tab,
// newline and carriage return written as s, t, n and r.
const padAttr = "btm-pad"

var padRe = regexp.MustCompile(` ` + padAttr + `="([^"]*)"`)

var (
	padEncoder = strings.NewReplacer(" ", "s", "\t", "t", "\n", "n", "\r", "r")
	padDecoder = strings.NewReplacer("s", " ", "t", "\t", "n", "\n", "r", "\r")
)

// padding is the whitespace a comment carried around its element.
type padding struct {
	lead, trail string
}

// readPads extracts the padding record from marker text. It returns the
// record and the marker without it.
func readPads(marker string) (map[int]padding, string) {
	pads := map[int]padding{}
	loc := padRe.FindStringSubmatchIndex(marker)
	if loc == nil {
		return pads, marker
	}
	for _, entry := range strings.Fields(marker[loc[2]:loc[3]]) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			continue
		}
		i, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		pads[i] = padding{lead: padDecoder.Replace(parts[1]), trail: padDecoder.Replace(parts[2])}
	}
	return pads, marker[:loc[0]] + marker[loc[1]:]
}

// writePads puts the padding record back into a marker returned by readPads.
// The record goes after the last non-space character so that removing it
// restores the marker exactly.
func writePads(bare string, pads map[int]padding) string {
	if len(pads) == 0 {
		return bare
	}
	idx := make([]int, 0, len(pads))
	for i := range pads {
		idx = append(idx, i)
	}
	slices.Sort(idx)

	entries := make([]string, 0, len(idx))
	for _, i := range idx {
		entries = append(entries, fmt.Sprintf("%d:%s:%s", i, padEncoder.Replace(pads[i].lead), padEncoder.Replace(pads[i].trail)))
	}

	body := strings.TrimRight(bare, " \t\r\n")
	return body + " " + padAttr + `="` + strings.Join(entries, " ") + `"` + bare[len(body):]
}
