package craft

import (
	"fmt"
	"strings"
)

// DefaultRenderBaseURL is the public item image renderer.
const DefaultRenderBaseURL = "https://render.albiononline.com/v1/item"

// IsArtifact reports whether the id names an artifact material.
// The game spells it "ARTEFACT"; both spellings are accepted.
func IsArtifact(uniqueID string) bool {
	id := strings.ToUpper(uniqueID)
	return strings.Contains(id, "ARTEFACT") || strings.Contains(id, "ARTIFACT")
}

// DisplayKey returns the id used for image and label lookup at the given
// enchantment level. Cost and flattening always use the base id.
func DisplayKey(uniqueID string, level int) string {
	if level <= 0 || IsArtifact(uniqueID) {
		return uniqueID
	}
	return fmt.Sprintf("%s_LEVEL%d@%d", uniqueID, level, level)
}

// ImageURL builds the render URL for a display key.
// An empty base falls back to DefaultRenderBaseURL.
func ImageURL(base, key string) string {
	if base == "" {
		base = DefaultRenderBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + key + ".png"
}
