package download

import (
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

// unnamedPrefix starts every synthesized file name.
const unnamedPrefix = "unnamed_"

// maxNameLength keeps generated names well below common filesystem limits.
const maxNameLength = 200

// FileName derives the storage name of locator from the last segment of its
// path. Locators whose path ends in "/" or has no usable segment get a
// synthesized name.
func FileName(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return SynthesizeName(locator)
	}

	escaped := u.EscapedPath()
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}

	name := sanitize(segment)
	if name == "" || name == "." || name == ".." {
		return SynthesizeName(locator)
	}
	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		cut := maxNameLength - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}

// SynthesizeName returns "unnamed_" followed by a short hash of locator.
// The same locator always yields the same name.
func SynthesizeName(locator string) string {
	return unnamedPrefix + shortHash(locator)
}

// shortHash returns the first 8 hex digits of the SHA3-256 digest of s.
func shortHash(s string) string {
	sum := sha3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

// withSuffix inserts "_<suffix>" before the extension of name.
func withSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	if ext == name {
		// Dotfiles such as ".htaccess" have no stem.
		return name + "_" + suffix
	}
	return strings.TrimSuffix(name, ext) + "_" + suffix + ext
}

// sanitize removes characters that are unsafe in a single path element.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == ':', r == 0:
			return '_'
		case r < 0x20:
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
}
