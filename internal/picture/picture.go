// Package picture extracts inline illustration directives from model output.
//
// The model (and stored problem texts) may embed directives of the form
// {{ PIC : filename.png }} referencing an asset by file name. Extract strips
// every directive from the text and resolves the referenced asset URL.
package picture

import (
	"regexp"
	"strings"
)

// directive matches {{ PIC : <token> }} with arbitrary internal whitespace.
// The PIC keyword is case-sensitive; the token ends at whitespace or "}}".
var directive = regexp.MustCompile(`\{\{\s*PIC\s*:\s*([^}\s]+)\s*\}\}`)

// Extractor resolves directive tokens against a fixed asset base URL.
type Extractor struct {
	// BaseURL is prepended verbatim to the trimmed token.
	BaseURL string
}

// Extract scans text for picture directives.
//
// It returns the text with every directive removed (trimmed only at the
// outer edges) and the URL of the last directive in document order, or ""
// when no directive is present. Extract is pure and idempotent: running it
// on its own cleaned output yields the same text and no URL.
func (e Extractor) Extract(text string) (cleaned, imageURL string) {
	matches := directive.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		if token := strings.TrimSpace(m[1]); token != "" {
			// Last directive wins; earlier ones are still stripped.
			imageURL = e.BaseURL + token
		}
	}
	cleaned = strings.TrimSpace(directive.ReplaceAllString(text, ""))
	return cleaned, imageURL
}
