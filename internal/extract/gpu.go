package extract

import (
	"regexp"
	"strings"
)

// GPU patterns in priority order across both discrete vendors plus
// Intel Arc. Tier tokens (RTX/GTX/RX/ARC) are part of the match and
// survive normalization; brand names do not.
var gpuCascade = cascade{
	label: regexp.MustCompile(`(?i)видеокарта[:\s\-]+([^\n\t]+)`),
	patterns: compileAll(
		`(?i)(?:GeForce\s*)?RTX\s*\d{4}(?:\s*Ti|\s*SUPER)?`,
		`(?i)(?:GeForce\s*)?GTX\s*\d{3,4}(?:\s*Ti)?`,
		`(?i)(?:Radeon\s*)?RX\s*\d{3,4}(?:\s*XT)?`,
		`(?i)(?:AMD\s*)?Radeon\s*\d{4}(?:\s*XT)?`,
		`(?i)(?:Intel\s*)?ARC\s*A\d{3,4}`,
	),
}

var gpuBrand = regexp.MustCompile(`(?i)\b(?:NVIDIA|GeForce|AMD|Radeon|Intel)\s*`)

// GPU extracts and normalizes the graphics card model, e.g.
// "NVIDIA GeForce RTX 4060 Ti" -> "RTX 4060 TI". Returns "" when no
// known family matches.
func GPU(text string) string {
	if text == "" {
		return ""
	}
	hit := gpuCascade.find(prepare(text))
	if hit == "" {
		return ""
	}
	return NormalizeGPU(hit)
}

// NormalizeGPU strips brand qualifiers, keeping the tier token, model
// number and suffix, uppercased.
func NormalizeGPU(gpu string) string {
	gpu = gpuBrand.ReplaceAllString(gpu, "")
	return strings.ToUpper(strings.TrimSpace(gpu))
}
