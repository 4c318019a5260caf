// Package urlparse extracts the platform-level video identifier from a
// source URL (spec §6), tried in order, first match wins.
package urlparse

import (
	"fmt"
	"regexp"
)

// ErrNoMatch is returned when none of the known URL patterns match
// (spec §4.3 step 2: "fail fast with invalid_url if none match").
var ErrNoMatch = fmt.Errorf("no known video URL pattern matched")

// patterns are tried in the order spec §6 lists them; <ID> is [^&\n?#]+.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:.*&)?v=([^&\n?#]+)`),
	regexp.MustCompile(`youtu\.be/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ExtractID returns the platform-level video identifier embedded in
// sourceURL, or ErrNoMatch if none of the recognized patterns apply.
func ExtractID(sourceURL string) (string, error) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(sourceURL); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoMatch
}
