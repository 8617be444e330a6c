package textextract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reHorizontalSpace = regexp.MustCompile(`[ \t]+`)
	reBlankLines      = regexp.MustCompile(`\n{3,}`)
)

// Normalize prepares extracted text for the field extractors. It is idempotent.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = reHorizontalSpace.ReplaceAllString(text, " ")
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
