package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/giftlist/quickadd/internal/quickadd/service"
	"github.com/giftlist/quickadd/internal/shared/models"
)

// QuickAdder is the orchestrator surface the handler needs
type QuickAdder interface {
	QuickAdd(ctx context.Context, userID, itemName, recipientContext string) *service.Result
}

type QuickAddHandler struct {
	service QuickAdder
}

func NewQuickAddHandler(svc QuickAdder) *QuickAddHandler {
	return &QuickAddHandler{service: svc}
}

// QuickAddRequest is the body of POST /api/ai/quick-add
type QuickAddRequest struct {
	ItemName         string `json:"itemName"`
	RecipientContext string `json:"recipientContext,omitempty"`
}

// HandleQuickAdd handles POST /api/ai/quick-add
func (h *QuickAddHandler) HandleQuickAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Get API key from context (set by auth middleware)
	apiKey, ok := ctx.Value("api_key").(*models.APIKey)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, &service.Result{Success: false, Error: "Unauthorized"})
		return
	}

	var req QuickAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &service.Result{
			Success: false,
			Error:   "invalid request body",
			Code:    service.CodeInvalidInput,
		})
		return
	}

	result := h.service.QuickAdd(ctx, apiKey.UserID, req.ItemName, req.RecipientContext)
	writeJSON(w, statusFor(result), result)
}

// statusFor maps a result to its HTTP status code
func statusFor(res *service.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case service.CodeInvalidInput:
		return http.StatusBadRequest
	case service.CodeBudgetExceeded, service.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
