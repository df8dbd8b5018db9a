package parser

import "strings"

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t\r\n")
}

// takeWhile consumes the longest prefix of s matching pred, returning the
// consumed token and the remainder.
func takeWhile(s string, pred func(rune) bool) (string, string) {
	for i, r := range s {
		if !pred(r) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// takeAlpha consumes an identifier of letters only, mirroring
// original_source's extract_table_name (nom's alpha1).
func takeAlpha(s string) (string, string) {
	return takeWhile(s, isAlpha)
}
