package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/giftlist/quickadd/internal/shared/models"
)

const systemPrompt = `You are a gift shopping research assistant. Given a product name, provide shopping information using SEARCH URLs only.

CRITICAL RULES:
1. Generate SEARCH URLs, NOT direct product links
   Format: https://www.amazon.com/s?k={product+name+url+encoded}
2. Estimate realistic prices based on your knowledge (be conservative)
3. Always include Amazon, Walmart, and Target
4. Add 1-2 specialty retailers if relevant
5. Mark cheapest option as isBestPrice: true
6. Mark premium options as isHighend: true
7. Suggest if item is "required" or "optional" based on context
8. Generate imageKeywords with specific product name, brand (if identifiable), and type for finding accurate product images

Respond with ONLY valid JSON. No markdown, no explanations.`

// Client wraps the OpenAI API for quick-add suggestion lookups
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new suggestion client
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// FetchSuggestion asks the model for shopping suggestions for an item. The
// call carries a bounded timeout and is never retried here. Usage is returned
// even when parsing fails, since those tokens were already paid for.
func (c *Client) FetchSuggestion(ctx context.Context, itemName, recipientContext string) (*models.SuggestionPayload, openai.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(itemName, recipientContext)},
		},
		MaxTokens:   800,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, openai.Usage{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, resp.Usage, fmt.Errorf("no response from AI")
	}

	payload, err := ParseSuggestion(resp.Choices[0].Message.Content, itemName)
	if err != nil {
		return nil, resp.Usage, fmt.Errorf("invalid AI response: %w", err)
	}

	return payload, resp.Usage, nil
}

func userPrompt(itemName, recipientContext string) string {
	prompt := fmt.Sprintf("Find shopping options for: %q\n", itemName)
	if recipientContext != "" {
		prompt += fmt.Sprintf("Context: Gift for %s\n", recipientContext)
	}

	prompt += `
Return JSON:
{
  "description": "Brief 1-2 sentence product description",
  "priceRange": { "low": number, "high": number },
  "suggestedStatus": "required" | "optional",
  "imageKeywords": "specific product name brand type for image search",
  "retailers": [
    {
      "storeName": "Amazon",
      "searchUrl": "https://www.amazon.com/s?k=product+name",
      "estimatedPrice": number,
      "isBestPrice": boolean,
      "isHighend": boolean
    }
  ]
}`

	return prompt
}
