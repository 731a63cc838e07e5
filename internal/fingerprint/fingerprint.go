package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"log-investigator/pkg/models"
)

// KeyLength is the truncated hex width of a fingerprint
const KeyLength = 16

// Fingerprinter derives a stable grouping key from a canonical entry
type Fingerprinter struct {
	uuidRegex   *regexp.Regexp
	hexRegex    *regexp.Regexp
	pathRegex   *regexp.Regexp
	quotedRegex *regexp.Regexp
	digitRegex  *regexp.Regexp
	spaceRegex  *regexp.Regexp
}

// NewFingerprinter creates a new fingerprinter
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{
		// Hyphenated UUIDs
		uuidRegex: regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`),
		// 0x-prefixed values and bare hex runs of 8+ chars
		hexRegex: regexp.MustCompile(`\b0x[0-9a-f]+\b|\b[0-9a-f]{8,}\b`),
		// Absolute paths with at least two segments
		pathRegex: regexp.MustCompile(`(?:/[\w.-]+){2,}`),
		// Single- or double-quoted literals
		quotedRegex: regexp.MustCompile(`"[^"]*"|'[^']*'`),
		digitRegex:  regexp.MustCompile(`\d+`),
		spaceRegex:  regexp.MustCompile(`\s+`),
	}
}

// Template masks volatile tokens in a message so that semantically-equivalent
// messages collapse to one string. Composite tokens (UUIDs, hex ids, paths,
// quoted literals) are masked before bare digit runs so their digit substrings
// cannot split them apart.
func (f *Fingerprinter) Template(message string) string {
	t := strings.ToLower(strings.TrimSpace(message))
	if t == "" {
		return ""
	}

	t = f.uuidRegex.ReplaceAllString(t, "<ID>")
	t = f.hexRegex.ReplaceAllStringFunc(t, func(tok string) string {
		if strings.HasPrefix(tok, "0x") || strings.ContainsAny(tok, "abcdef") {
			return "<ID>"
		}
		// A pure digit run is a number, not an identifier
		return "<N>"
	})
	t = f.pathRegex.ReplaceAllString(t, "<PATH>")
	t = f.quotedRegex.ReplaceAllString(t, "<STR>")
	t = f.digitRegex.ReplaceAllString(t, "<N>")

	t = f.spaceRegex.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Fingerprint computes the stable grouping key for an entry. Entries that
// differ only in volatile message tokens share a key; entries differing in
// service or level never do.
func (f *Fingerprinter) Fingerprint(entry models.CanonicalLogEntry) string {
	combined := entry.Service + "|" + entry.Level + "|" + f.Template(entry.Message)
	hash := sha256.Sum256([]byte(combined))
	return fmt.Sprintf("%x", hash)[:KeyLength]
}
