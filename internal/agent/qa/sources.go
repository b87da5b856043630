package qa

import (
	"path/filepath"
	"strings"

	"github.com/docuchat/server/internal/agent/model"
)

const sourcesHeader = "Sources:"

// SourceFiles returns the unique source file names of the passages, in
// first-seen order, with path and extension stripped.
func SourceFiles(docs []model.Passage) []string {
	seen := make(map[string]bool, len(docs))
	var out []string
	for _, d := range docs {
		name := displayName(d.FileName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// FormatSources renders the de-duplicated source list as a short
// human-readable block. Empty input yields an empty string, never a bare
// header.
func FormatSources(docs []model.Passage) string {
	return FormatSourceList(SourceFiles(docs))
}

// FormatSourceList renders an already-extracted source name list as the
// same block.
func FormatSourceList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return sourcesHeader + "\n" + strings.Join(names, "\n")
}

// StripSources removes the trailing source block from a generation so the
// judges evaluate substantive content only.
func StripSources(generation string) string {
	if idx := strings.Index(generation, "\n\n"+sourcesHeader); idx >= 0 {
		return generation[:idx]
	}
	return generation
}

func displayName(fileName string) string {
	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
