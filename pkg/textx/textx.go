// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripHTML returns the visible text of an HTML fragment with entities decoded
// and whitespace collapsed. Plain text passes through unchanged apart from the
// whitespace.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	doc.Find("script,style,noscript").Remove()
	return CollapseSpace(doc.Text())
}

// CollapseSpace joins all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanSnippet prepares third-party text for embedding in a prompt.
func CleanSnippet(s string) string {
	return StripHTML(SanitizeText(s))
}
