package main

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unified returns a unified patch from old to updated, or "" when they are
// equal.
func unified(name string, old, updated []byte) string {
	if string(old) == string(updated) {
		return ""
	}
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(old)),
		B:        splitLinesKeepNL(string(updated)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil || s == "" {
		return "--- a/" + name + "\n+++ b/" + name + "\n(diff unavailable)\n"
	}
	return s
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
