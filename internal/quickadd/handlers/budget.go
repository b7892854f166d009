package handlers

import (
	"context"
	"net/http"

	"github.com/giftlist/quickadd/internal/shared/models"
)

// BudgetReader is the ledger surface the handler needs
type BudgetReader interface {
	Snapshot(ctx context.Context, userID string) (*models.BudgetSnapshot, error)
}

type BudgetHandler struct {
	ledger BudgetReader
}

func NewBudgetHandler(ledger BudgetReader) *BudgetHandler {
	return &BudgetHandler{ledger: ledger}
}

type budgetResponse struct {
	Success bool                   `json:"success"`
	Data    *models.BudgetSnapshot `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// HandleGetBudget handles GET /api/ai/budget
func (h *BudgetHandler) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apiKey, ok := ctx.Value("api_key").(*models.APIKey)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, &budgetResponse{Success: false, Error: "Unauthorized"})
		return
	}

	snapshot, err := h.ledger.Snapshot(ctx, apiKey.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &budgetResponse{Success: false, Error: "Failed to get budget"})
		return
	}

	writeJSON(w, http.StatusOK, &budgetResponse{Success: true, Data: snapshot})
}
