package textutil

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNotText is returned by Decode for content that is not UTF-8 text.
var ErrNotText = errors.New("content is not text")

// Decode returns b as a string when it is valid UTF-8 without NUL bytes.
// Line endings are left untouched.
func Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrNotText
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", ErrNotText
	}
	return string(b), nil
}

// SplitLines splits s on '\n'. A trailing newline yields a final empty
// element, so JoinLines(SplitLines(s)) == s for every s.
func SplitLines(s string) []string {
	return strings.Split(s, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
