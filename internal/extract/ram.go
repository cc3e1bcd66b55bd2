package extract

import (
	"regexp"
	"strconv"
)

// allowedRAM enumerates the memory capacities sold in real builds.
// Gigabyte figures outside this set (storage sizes, module counts) are
// noise and never reported as RAM.
var allowedRAM = map[int]bool{
	8: true, 16: true, 32: true, 48: true, 64: true, 96: true, 128: true,
}

var (
	// "2x8GB" / "2х8GB" (Latin and Cyrillic х).
	ramMultiply = regexp.MustCompile(`(?i)(\d+)\s*[xх]\s*(\d+)\s*GB`)

	// Labeled memory figures, Russian and English.
	ramContexts = compileAll(
		`(?i)оперативная память[:\s\-]+[^0-9]*(\d+)\s*GB`,
		`(?i)память[:\s\-]+[^0-9]*(\d+)\s*GB`,
		`(?i)DDR\d[:\s]+[^0-9]*(\d+)\s*GB`,
		`(?i)RAM[:\s]+(\d+)\s*GB`,
		`(?i)ОЗУ[:\s]+(\d+)\s*GB`,
	)

	ramAnyGB = regexp.MustCompile(`(?i)(\d+)\s*GB`)
)

// RAM extracts the memory capacity in gigabytes as a bare integer
// string ("16"), or "" when nothing in the allowed capacity set is
// found. The count-times-size form ("2x8GB") takes precedence, then
// labeled figures, then any gigabyte-suffixed number in the text.
func RAM(text string) string {
	if text == "" {
		return ""
	}
	text = prepare(text)

	if m := ramMultiply.FindStringSubmatch(text); m != nil {
		count, _ := strconv.Atoi(m[1])
		size, _ := strconv.Atoi(m[2])
		if total := count * size; allowedRAM[total] {
			return strconv.Itoa(total)
		}
	}

	for _, p := range ramContexts {
		if m := p.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && allowedRAM[n] {
				return strconv.Itoa(n)
			}
		}
	}

	for _, m := range ramAnyGB.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && allowedRAM[n] {
			return strconv.Itoa(n)
		}
	}

	return ""
}
