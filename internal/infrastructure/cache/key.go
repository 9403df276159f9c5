package cache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	keyPrefix = "vr"
	// debugChars is how much of the normalized query we keep in the key
	// so cache rows stay human-readable. It is a debug aid, not part of
	// key uniqueness.
	debugChars = 16
)

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips punctuation and collapses whitespace so
// equivalent queries hash to the same key.
func Normalize(query string) string {
	if query == "" {
		return ""
	}
	result := strings.ToLower(query)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// QueryKey derives the deterministic cache key for a query:
// a fixed prefix, a 64-bit hash of the normalized string, and a short
// readable fragment of the query.
func QueryKey(query string) string {
	normalized := Normalize(query)
	sum := xxhash.Sum64String(normalized)

	fragment := strings.ReplaceAll(normalized, " ", "_")
	if len(fragment) > debugChars {
		fragment = fragment[:debugChars]
	}

	return fmt.Sprintf("%s:%016x:%s", keyPrefix, sum, fragment)
}
