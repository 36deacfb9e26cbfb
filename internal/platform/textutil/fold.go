package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s with surrounding space removed.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ContainsFold reports whether needle occurs in any of the haystacks ignoring case.
// An empty needle matches everything.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = Fold(needle)
	if needle == "" {
		return true
	}
	folder := cases.Fold()
	for _, h := range haystacks {
		if strings.Contains(folder.String(h), needle) {
			return true
		}
	}
	return false
}
