package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the NFC form of name with backslashes turned into
// forward slashes.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.ReplaceAll(name, `\`, "/"))
}

// TitleCase renders a snake_case or lower-case label as words in title case.
func TitleCase(label string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(label))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
