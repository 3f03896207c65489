package segmenter

import (
	"strconv"
	"strings"
	"unicode"
)

var romanValues = map[rune]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// parseRoman converts a roman numeral to its integer value
func parseRoman(s string) (int, bool) {
	s = strings.ToUpper(s)
	total := 0
	prev := 0
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := romanValues[rune(s[i])]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// ParseSectionNumber parses a marker number permissively: arabic digits
// with optional letter suffixes ("100", "100-A", "5bis") or roman numerals
// ("IV", "XXIII"). Failure is not an error for the caller; the raw text is
// kept and the section only loses counting guarantees.
func ParseSectionNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// leading digits win: "100-A" -> 100
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end > 0 {
		n, err := strconv.Atoi(s[:end])
		if err == nil && n > 0 {
			return n, true
		}
		return 0, false
	}

	// roman numeral, possibly with a suffix like "IV-A"
	token := s
	if i := strings.IndexAny(token, "-–"); i > 0 {
		token = token[:i]
	}
	return parseRoman(token)
}
