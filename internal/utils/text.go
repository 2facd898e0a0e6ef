package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Normalize lowercases s, strips diacritics and collapses whitespace so that
// "Sedentário " and "sedentario" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Tokens splits s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// Numbers returns every decimal number found in s, accepting comma or dot
// as the decimal separator.
func Numbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err != nil {
			continue
		}
		nums = append(nums, v)
	}
	return nums
}

// FirstNumber returns the first number in s.
func FirstNumber(s string) (float64, bool) {
	nums := Numbers(s)
	if len(nums) == 0 {
		return 0, false
	}
	return nums[0], true
}

// IsNumeric reports whether s is a single number, optionally followed by a unit
// such as "kg", "cm" or "m".
func IsNumeric(s string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	for _, unit := range []string{"kg", "cm", "anos", "m"} {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, unit))
	}
	return trimmed != "" && numberPattern.FindString(trimmed) == trimmed
}

// ContainsAny reports whether s contains any of the given substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractJSONObject returns the outermost {...} span of s, which strips code
// fences and chatter around a model's JSON answer.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
