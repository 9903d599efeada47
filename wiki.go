package main

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wikiLinkRE   = regexp.MustCompile(`\[\[(?:[^|\]]+\|)?([^\]]+)\]\]`)
	templateRE   = regexp.MustCompile(`\{\{[^}]+\}\}`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// IsArticleTitle reports whether a page title belongs to the main
// namespace. Namespaced titles like "Category:Foo" or "Talk:Bar" are
// not articles and are not ingested.
func IsArticleTitle(title string) bool {
	return !strings.Contains(title, ":")
}

// CleanSnippet strips wikilink and template markup, collapses runs of
// whitespace and truncates the result to n bytes.
func CleanSnippet(s string, n int) string {
	s = wikiLinkRE.ReplaceAllString(s, "$1")
	s = templateRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
	return Truncate(s, n)
}

// Truncate limits s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// MakeID derives a stable point ID from its parts: 64 bits of the sha1
// of the joined parts, hex-encoded. Re-ingesting the same page writes
// the same IDs, so the upsert overwrites instead of duplicating.
func MakeID(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:8])
}

// GuessWikiBase derives the page URL prefix from a dump filename.
func GuessWikiBase(path string) string {
	if strings.Contains(path, "simplewiki") {
		return "https://simple.wikipedia.org/wiki/"
	}
	return "https://en.wikipedia.org/wiki/"
}

// PageURL builds the display URL for a page title.
func PageURL(base, title string) string {
	return base + strings.ReplaceAll(title, " ", "_")
}
