package extract

import (
	"regexp"
	"strings"

	"github.com/va-pc/buildscout/internal/model"
)

var caseLabel = regexp.MustCompile(`корпус[:\s]+([^\n\t]+)`)

// Indicator tokens checked inside the labeled case segment. White is
// checked before black; when both appear, white wins.
var (
	whiteIndicators = []string{"белый", "белом", "white", "wh"}
	blackIndicators = []string{"черный", "чёрный", "черном", "black", "bk"}
)

// CaseColor resolves the case color from a "Корпус: ..." segment of the
// text. Returns ColorNone when no labeled segment or no indicator token
// is present; the visual classifier handles that fallback.
func CaseColor(text string) model.CaseColor {
	if text == "" {
		return model.ColorNone
	}
	lower := strings.ToLower(prepare(text))

	m := caseLabel.FindStringSubmatch(lower)
	if m == nil {
		return model.ColorNone
	}
	segment := m[1]

	for _, tok := range whiteIndicators {
		if strings.Contains(segment, tok) {
			return model.ColorWhite
		}
	}
	for _, tok := range blackIndicators {
		if strings.Contains(segment, tok) {
			return model.ColorBlack
		}
	}
	return model.ColorNone
}
