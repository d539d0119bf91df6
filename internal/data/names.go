package data

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// NameTable maps a base unique id to its human-readable name.
type NameTable map[string]string

// ParseNames reads the line-oriented name resource.
// Line format: "<index>:<uniqueId>:<displayName>[:...]". Fields are trimmed.
// Lines with fewer than three fields or an empty id are skipped; a later
// line for the same id wins.
func ParseNames(r io.Reader) (NameTable, error) {
	names := make(NameTable)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		parts := strings.Split(sc.Text(), ":")
		if len(parts) < 3 {
			continue
		}
		id := strings.TrimSpace(parts[1])
		if id == "" {
			continue
		}
		names[id] = strings.TrimSpace(parts[2])
	}
	if err := sc.Err(); err != nil {
		return names, fmt.Errorf("scanning names: %w", err)
	}
	return names, nil
}

// Lookup returns the display name for id, or id itself when unknown or blank.
func (t NameTable) Lookup(id string) string {
	if name := t[id]; name != "" {
		return name
	}
	return id
}
