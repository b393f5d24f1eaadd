package utils

import (
	"strings"

	"github.com/PolarWolf314/stash/internal/ui"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// Plural returns singular when n is 1 and singular+"s" otherwise.
func Plural(n int, singular string) string {
	if n == 1 {
		return singular
	}
	return singular + "s"
}
