package api

import (
	"strconv"

	"github.com/va-pc/buildscout/internal/model"
)

// Russian placeholders for unresolved fields; grammatical gender
// follows the field noun.
const (
	placeholderCPU   = "Не указан"
	placeholderGPU   = "Не указана"
	placeholderRAM   = "Не указана"
	placeholderColor = "Не определен"
)

// buildResponse is the wire shape of one build, with display-ready
// field formatting.
type buildResponse struct {
	ID              string  `json:"id"`
	Company         string  `json:"company"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	PriceFormatted  string  `json:"price_formatted"`
	CPU             string  `json:"cpu"`
	GPU             string  `json:"gpu"`
	RAM             string  `json:"ram"`
	CaseColor       string  `json:"case_color"`
	PhotoURL        string  `json:"photo_url"`
	VKURL           string  `json:"vk_url"`
	IsOurBuild      bool    `json:"is_our_build"`
	PriceComparison string  `json:"price_comparison,omitempty"`
}

func formatBuild(b model.Build) buildResponse {
	resp := buildResponse{
		ID:             b.ID,
		Company:        b.Company,
		Title:          b.Title,
		Description:    b.Description,
		Price:          b.Price,
		PriceFormatted: FormatPrice(b.Price),
		CPU:            b.CPU,
		GPU:            b.GPU,
		CaseColor:      string(b.CaseColor),
		PhotoURL:       b.PhotoURL,
		VKURL:          b.VKURL,
		IsOurBuild:     b.IsOurBuild,
	}
	if resp.CPU == "" {
		resp.CPU = placeholderCPU
	}
	if resp.GPU == "" {
		resp.GPU = placeholderGPU
	}
	if b.RAM != "" {
		resp.RAM = b.RAM + " GB"
	} else {
		resp.RAM = placeholderRAM
	}
	if resp.CaseColor == "" {
		resp.CaseColor = placeholderColor
	}
	return resp
}

func formatBuilds(builds []model.Build) []buildResponse {
	out := make([]buildResponse, 0, len(builds))
	for _, b := range builds {
		out = append(out, formatBuild(b))
	}
	return out
}

// annotateComparisons formats builds and marks each as cheaper, more
// expensive, or equal relative to the target price.
func annotateComparisons(builds []model.Build, targetPrice float64) []buildResponse {
	out := make([]buildResponse, 0, len(builds))
	for _, b := range builds {
		resp := formatBuild(b)
		switch {
		case b.Price < targetPrice:
			resp.PriceComparison = "cheaper"
		case b.Price > targetPrice:
			resp.PriceComparison = "more_expensive"
		default:
			resp.PriceComparison = "equal"
		}
		out = append(out, resp)
	}
	return out
}

// FormatPrice renders a ruble amount with space-separated thousands,
// e.g. 119990 becomes "119 990 руб.".
func FormatPrice(price float64) string {
	digits := strconv.FormatInt(int64(price), 10)
	neg := false
	if len(digits) > 0 && digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}

	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, d)
	}
	s := string(out)
	if neg {
		s = "-" + s
	}
	return s + " руб."
}
