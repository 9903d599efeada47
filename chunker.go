package main

import "strings"

// Chunkify splits text into overlapping windows of at most size bytes.
// Consecutive windows advance by size-overlap and the last window always
// ends exactly at the end of the text. Input is trimmed first; empty or
// whitespace-only input yields no chunks. Callers must keep overlap
// smaller than size (Config.validate enforces this).
func Chunkify(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	l := len(text)
	if l == 0 {
		return []string{}
	}

	step := size - overlap
	pos := 0
	res := make([]string, 0, l/step+1)

	for {
		end := min(pos+size, l)
		res = append(res, text[pos:end])
		if end >= l {
			break
		}

		pos += step
	}

	return res
}
