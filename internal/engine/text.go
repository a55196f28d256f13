package engine

import "unicode/utf8"

// TruncateRunes returns at most n runes of s. n <= 0 means no limit.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
