package textutil

import (
	"strconv"
	"strings"
)

// SplitName splits a file name at its last dot. The extension is returned
// without the dot. Names without a dot, or whose only dot is leading, have no
// extension.
func SplitName(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ZeroPad left-pads s with zeros up to width. Longer values are returned as-is.
func ZeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// PaddingWidth is the digit width expected for numeric page names in an
// archive of count pages.
func PaddingWidth(count int) int {
	switch {
	case count < 90:
		return 2
	case count < 950:
		return 3
	default:
		return 5
	}
}

// OrdinalWidth is the width used for renamed output pages: enough digits for
// count, never fewer than two.
func OrdinalWidth(count int) int {
	return max(2, len(strconv.Itoa(count)))
}
