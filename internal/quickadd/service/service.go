package service

import (
	"context"
	"log"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/giftlist/quickadd/internal/quickadd/ai"
	"github.com/giftlist/quickadd/internal/shared/models"
)

// Error codes returned to callers
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeBudgetExceeded = "BUDGET_EXCEEDED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeAIFailure      = "AI_FAILURE"
	CodeUnknown        = "UNKNOWN"
)

const (
	minItemNameLen = 3
	maxItemNameLen = 500
)

// BudgetLedger gates and accounts for paid model calls
type BudgetLedger interface {
	IsWithinBudget(ctx context.Context, userID string) bool
	RecordUsage(ctx context.Context, userID string, tokens, costCents int)
}

// LookupCache serves previously computed suggestions
type LookupCache interface {
	Get(ctx context.Context, query string) *models.SuggestionPayload
	Set(ctx context.Context, query string, payload *models.SuggestionPayload)
}

// SuggestionClient fetches suggestions from the model. FetchSuggestion must
// return usage whenever the underlying call completed, even if its output was
// unusable.
type SuggestionClient interface {
	FetchSuggestion(ctx context.Context, itemName, recipientContext string) (*models.SuggestionPayload, openai.Usage, error)
	Model() string
}

// Usage mirrors the OpenAI usage block on the wire
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the tagged outcome of a quick-add request
type Result struct {
	Success bool                      `json:"success"`
	Data    *models.SuggestionPayload `json:"data,omitempty"`
	Cached  bool                      `json:"cached"`
	Usage   *Usage                    `json:"usage,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Code    string                    `json:"code,omitempty"`
}

// Service sequences budget check, cache lookup, model call, cache write and
// usage accounting for quick-add requests. Stateless across requests.
type Service struct {
	ledger BudgetLedger
	cache  LookupCache
	client SuggestionClient
}

// New creates a quick-add service
func New(ledger BudgetLedger, cache LookupCache, client SuggestionClient) *Service {
	return &Service{ledger: ledger, cache: cache, client: client}
}

// QuickAdd runs one lookup for a user: input validation, budget gate, cache,
// then a paid model call on a miss.
func (s *Service) QuickAdd(ctx context.Context, userID, itemName, recipientContext string) *Result {
	trimmed := strings.TrimSpace(itemName)
	if utf8.RuneCountInString(trimmed) < minItemNameLen {
		return failure("Item name must be at least 3 characters", CodeInvalidInput)
	}
	if utf8.RuneCountInString(trimmed) > maxItemNameLen {
		return failure("Item name too long (max 500 characters)", CodeInvalidInput)
	}

	if !s.ledger.IsWithinBudget(ctx, userID) {
		return failure("Monthly AI budget exceeded ($10/month). Use manual entry or try again next month.", CodeBudgetExceeded)
	}

	query := trimmed
	if recipientContext != "" {
		query = trimmed + " | " + recipientContext
	}

	if cached := s.cache.Get(ctx, query); cached != nil {
		return &Result{Success: true, Data: cached, Cached: true}
	}

	payload, usage, err := s.client.FetchSuggestion(ctx, trimmed, recipientContext)
	if err != nil {
		// A call that returned an unusable body still spent tokens
		if usage.TotalTokens > 0 {
			s.recordUsage(ctx, userID, usage)
		}
		log.Printf("quick-add failed for user %s: %v", userID, err)
		return failure("AI returned invalid data. Please try again.", CodeAIFailure)
	}

	// Cache write first, usage second; both best-effort
	s.cache.Set(ctx, query, payload)
	s.recordUsage(ctx, userID, usage)

	return &Result{
		Success: true,
		Data:    payload,
		Cached:  false,
		Usage: &Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	}
}

func (s *Service) recordUsage(ctx context.Context, userID string, usage openai.Usage) {
	costCents := ai.CalculateCost(usage, s.client.Model())
	s.ledger.RecordUsage(ctx, userID, usage.TotalTokens, int(math.Round(costCents)))
	log.Printf("quick-add request: user=%s tokens=%d cost=$%.4f", userID, usage.TotalTokens, costCents/100)
}

func failure(msg, code string) *Result {
	return &Result{Success: false, Error: msg, Code: code}
}
