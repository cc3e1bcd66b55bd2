package extract

import (
	"regexp"
	"strings"
)

// CPU patterns in priority order: vendor-qualified families first, bare
// shorthand forms last.
var cpuCascade = cascade{
	label: regexp.MustCompile(`(?i)процессор[:\s\-]+([^\n\t]+)`),
	patterns: compileAll(
		`(?i)(?:Intel\s*)?Core\s*Ultra\s*[579]\s*\d{3,4}[A-Z]*`,
		`(?i)(?:Intel\s*)?(?:Core\s*)?i[3579][\s\-]*\d{4,5}[A-Z]*`,
		`(?i)(?:AMD\s*)?Ryzen\s*[3579]?\s*\d{4}[A-Z0-9]*`,
		`(?i)i[3579][\s\-]*\d{4,5}`,
		`(?i)R[3579][\s\-]*\d{4}`,
	),
}

var (
	cpuUltra = regexp.MustCompile(`(?i)(?:Intel\s*)?Core\s*Ultra\s*(\d)`)
	cpuRyzen = regexp.MustCompile(`(?i)(?:AMD\s*)?Ryzen\s*(\d)`)
	cpuCore  = regexp.MustCompile(`(?i)(?:Intel\s*)?(?:Core\s*)?i(\d)`)
)

// CPU extracts and normalizes the processor model, e.g.
// "Intel Core Ultra 7 155H" -> "U7 155H", "AMD Ryzen 5 7600" -> "R5 7600".
// Returns "" when no known family matches.
func CPU(text string) string {
	if text == "" {
		return ""
	}
	hit := cpuCascade.find(prepare(text))
	if hit == "" {
		return ""
	}
	return NormalizeCPU(hit)
}

// NormalizeCPU collapses vendor prefixes to single-letter family codes
// (U for Core Ultra, R for Ryzen, I for Core iN) and uppercases the
// model. Idempotent on already-normalized codes.
func NormalizeCPU(cpu string) string {
	cpu = cpuUltra.ReplaceAllString(cpu, "U$1")
	cpu = cpuRyzen.ReplaceAllString(cpu, "R$1")
	cpu = cpuCore.ReplaceAllString(cpu, "I$1")
	return strings.ToUpper(strings.TrimSpace(cpu))
}
