package stamp

import "unicode/utf8"

// SplitIntoLines splits s into chunks of at most limit characters. Base64
// signature text has no word boundaries, so the split is by character count,
// not by words.
func SplitIntoLines(s string, limit int) []string {
	if limit <= 0 || s == "" {
		return nil
	}
	lines := make([]string, 0, len(s)/limit+1)
	for len(s) > limit {
		lines = append(lines, s[:limit])
		s = s[limit:]
	}
	return append(lines, s)
}

// clampToWidth truncates s until measure(s) fits maxWidth. measure is the
// injected text-measurement capability (font metrics live in the renderer,
// not in any shared environment). Truncation is rune-wise so non-ASCII
// record content never loses a trailing partial byte sequence.
func clampToWidth(s string, maxWidth float64, measure func(string) float64) string {
	for len(s) > 0 && measure(s) > maxWidth {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
