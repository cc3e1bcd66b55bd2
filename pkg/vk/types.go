package vk

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// envelope is the outer shape of every VK API response: exactly one of
// Response or Error is populated.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// APIError is the error payload VK returns inside a 200 response.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return "vk: api error " + strconv.Itoa(e.Code) + ": " + e.Message
}

// MinorAmount is a price in minor currency units (kopecks). VK serializes
// it inconsistently as either a JSON number or a quoted string.
type MinorAmount int64

func (a *MinorAmount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return eris.Wrap(err, "vk: parse price amount")
	}
	*a = MinorAmount(n)
	return nil
}

// Price is the price object attached to a market item.
type Price struct {
	Amount   MinorAmount `json:"amount"`
	Currency Currency    `json:"currency"`
	Text     string      `json:"text"`
}

// Currency identifies the price currency.
type Currency struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PhotoSize is one rendition of an uploaded photo.
type PhotoSize struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Photo is a photo attachment with its available renditions.
type Photo struct {
	ID    int64       `json:"id"`
	Sizes []PhotoSize `json:"sizes"`
}

// LargestURL returns the URL of the largest rendition by pixel area,
// or "" when no sizes are present.
func (p Photo) LargestURL() string {
	best := ""
	bestArea := -1
	for _, s := range p.Sizes {
		if area := s.Width * s.Height; area > bestArea {
			bestArea = area
			best = s.URL
		}
	}
	return best
}

// MarketItem is one listing from market.get or a wall market attachment.
type MarketItem struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"owner_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       Price   `json:"price"`
	ThumbPhoto  string  `json:"thumb_photo"`
	Photos      []Photo `json:"photos"`
}

// PhotoURL resolves the preferred photo URL for an item: the thumbnail
// when present, otherwise the largest rendition of the first photo.
func (m MarketItem) PhotoURL() string {
	if m.ThumbPhoto != "" {
		return m.ThumbPhoto
	}
	if len(m.Photos) > 0 {
		return m.Photos[0].LargestURL()
	}
	return ""
}

type marketResponse struct {
	Count int          `json:"count"`
	Items []MarketItem `json:"items"`
}

// wallPost carries only what the wall source needs: market attachments.
type wallPost struct {
	ID          int64        `json:"id"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Type   string      `json:"type"`
	Market *MarketItem `json:"market"`
}

type wallResponse struct {
	Count int        `json:"count"`
	Items []wallPost `json:"items"`
}

// group is the subset of groups.getById we consume.
type group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// groupsResponse tolerates both response shapes VK has used for
// groups.getById: a bare array (legacy) and an object with a "groups" key.
type groupsResponse struct {
	Groups []group
}

func (g *groupsResponse) UnmarshalJSON(data []byte) error {
	var list []group
	if err := json.Unmarshal(data, &list); err == nil {
		g.Groups = list
		return nil
	}
	var obj struct {
		Groups []group `json:"groups"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return eris.Wrap(err, "vk: decode groups response")
	}
	g.Groups = obj.Groups
	return nil
}
