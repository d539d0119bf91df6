package pricefeed

import (
	"encoding/hex"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// SnapshotKey identifies a (locations, materials) selection independent of
// input order and duplicates. Equal keys mean equal selections.
func SnapshotKey(ids, locations []string) string {
	buf := strings.Join(normalize(locations), ",") + "\x00" + strings.Join(normalize(ids), ",")
	sum := blake2b.Sum256([]byte(buf))
	return hex.EncodeToString(sum[:])
}

// normalize trims, drops blanks, sorts and de-duplicates. The input is not
// modified.
func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
