package ai

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/giftlist/quickadd/internal/shared/models"
)

// rawSuggestion mirrors SuggestionPayload with pointer fields where we need
// to tell "absent" apart from a zero value
type rawSuggestion struct {
	Description     string                      `json:"description"`
	PriceRange      *models.PriceRange          `json:"priceRange"`
	SuggestedStatus string                      `json:"suggestedStatus"`
	Category        string                      `json:"category"`
	ImageKeywords   string                      `json:"imageKeywords"`
	Retailers       []models.RetailerSuggestion `json:"retailers"`
}

// ParseSuggestion validates the model's raw JSON output and enriches it with
// an image-search URL. The model is an external, non-deterministic system, so
// every required field is checked explicitly; malformed output is rejected
// whole rather than repaired.
func ParseSuggestion(content, itemName string) (*models.SuggestionPayload, error) {
	var raw rawSuggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if strings.TrimSpace(raw.Description) == "" {
		return nil, fmt.Errorf("response missing description")
	}
	if raw.PriceRange == nil {
		return nil, fmt.Errorf("response missing price range")
	}
	if raw.PriceRange.Low < 0 || raw.PriceRange.High < raw.PriceRange.Low {
		return nil, fmt.Errorf("implausible price range: low=%.2f high=%.2f", raw.PriceRange.Low, raw.PriceRange.High)
	}
	if len(raw.Retailers) == 0 {
		return nil, fmt.Errorf("response contains no retailers")
	}
	for i, r := range raw.Retailers {
		if strings.TrimSpace(r.StoreName) == "" || strings.TrimSpace(r.SearchURL) == "" {
			return nil, fmt.Errorf("retailer %d missing store name or search URL", i)
		}
		if r.EstimatedPrice < 0 {
			return nil, fmt.Errorf("retailer %d has negative price", i)
		}
	}

	status := raw.SuggestedStatus
	if status != "required" {
		status = "optional"
	}

	keywords := strings.TrimSpace(raw.ImageKeywords)
	if keywords == "" {
		keywords = itemName
	}

	return &models.SuggestionPayload{
		Description:     raw.Description,
		PriceRange:      *raw.PriceRange,
		SuggestedStatus: status,
		Category:        raw.Category,
		ImageKeywords:   keywords,
		ImageSearchURL:  ImageSearchURL(keywords),
		Retailers:       raw.Retailers,
	}, nil
}

// ImageSearchURL builds a Google Images search link for the given keywords
func ImageSearchURL(keywords string) string {
	return "https://www.google.com/search?tbm=isch&q=" + url.QueryEscape(keywords)
}
