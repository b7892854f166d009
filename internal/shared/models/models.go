package models

import "time"

// APIKey represents a caller credential mapped to a gift-list user
type APIKey struct {
	ID        string
	UserID    string
	KeyHash   string
	KeyPrefix string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// RetailerSuggestion is one store entry inside a suggestion payload.
// SearchURL is always a search-results URL, never a claimed product page.
type RetailerSuggestion struct {
	StoreName      string  `json:"storeName"`
	SearchURL      string  `json:"searchUrl"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	IsBestPrice    bool    `json:"isBestPrice"`
	IsHighend      bool    `json:"isHighend"`
}

// PriceRange is the model's low/high price estimate in dollars
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// SuggestionPayload is the structured quick-add result, both the wire
// shape returned to callers and the value cached in ai_cache
type SuggestionPayload struct {
	Description     string               `json:"description"`
	PriceRange      PriceRange           `json:"priceRange"`
	SuggestedStatus string               `json:"suggestedStatus"`
	Category        string               `json:"category,omitempty"`
	ImageKeywords   string               `json:"imageKeywords"`
	ImageSearchURL  string               `json:"imageSearchUrl"`
	Retailers       []RetailerSuggestion `json:"retailers"`
}

// CachedLookup is a row in the shared ai_cache table
type CachedLookup struct {
	QueryHash string
	QueryText string
	Payload   *SuggestionPayload
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
}

// UsageRecord is a row in the ai_usage ledger, one per (user, calendar month)
type UsageRecord struct {
	UserID       string
	MonthKey     string // "2026-08"
	TokensUsed   int
	CostCents    int
	RequestCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BudgetSnapshot is the derived read-only view served by GET /api/ai/budget
type BudgetSnapshot struct {
	RemainingCents             int `json:"remainingCents"`
	TotalCents                 int `json:"totalCents"`
	PercentUsed                int `json:"percentUsed"`
	EstimatedRequestsRemaining int `json:"estimatedRequestsRemaining"`
	EstimatedTotalRequests     int `json:"estimatedTotalRequests"`
}
