package tagger

import (
	"path/filepath"
	"strings"
)

// TaggedSuffix is appended to the base name of tagged workbooks
const TaggedSuffix = "_已标记"

// TaggedFileName derives the download name for a tagged copy of original:
// directories and a trailing .xlsx/.xls are dropped and the suffix plus
// .xlsx appended.
func TaggedFileName(original string) string {
	base := filepath.Base(strings.TrimSpace(original))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".xlsx", ".xls":
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		base = "output"
	}
	return base + TaggedSuffix + ".xlsx"
}
