// Package errcode loads the error description table shipped alongside the
// tool (codes.csv) and resolves the hex error codes a module reports into
// human-readable text.
package errcode

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NoDescription is returned for codes with no table entry. An unknown code
// is never a failure.
const NoDescription = "(no description available)"

// Table maps module error codes to descriptions.
type Table map[int]string

// Load parses a codes.csv style table: one entry per line, a decimal error
// code in the first comma-separated field and the description in double
// quotes somewhere after it. Lines that fit neither shape are skipped.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load error code table: %w", err)
	}
	defer f.Close()

	table := Table{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if code, desc, ok := parseLine(scanner.Text()); ok {
			table[code] = desc
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error code table: %w", err)
	}
	return table, nil
}

func parseLine(line string) (code int, desc string, ok bool) {
	comma := strings.IndexByte(line, ',')
	if comma < 0 {
		return 0, "", false
	}
	code, err := strconv.Atoi(strings.TrimSpace(line[:comma]))
	if err != nil {
		return 0, "", false
	}
	rest := line[comma+1:]
	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return 0, "", false
	}
	closing := strings.IndexByte(rest[open+1:], '"')
	if closing < 0 {
		return 0, "", false
	}
	return code, rest[open+1 : open+1+closing], true
}

// Describe resolves the hex error code text reported by a module.
func (t Table) Describe(code string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(code), 16, 32)
	if err != nil {
		return NoDescription
	}
	if desc, ok := t[int(n)]; ok {
		return desc
	}
	return NoDescription
}
