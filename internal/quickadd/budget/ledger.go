package budget

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/giftlist/quickadd/internal/shared/models"
)

// EstimatedCostPerRequestCents is the fallback per-request cost estimate for
// users with no usage history, calibrated from gpt-4o-mini pricing at typical
// quick-add token counts.
const EstimatedCostPerRequestCents = 0.0316

// Store is the persistence surface the ledger needs. AddUsage must apply its
// increments atomically at the storage layer.
type Store interface {
	GetUsage(ctx context.Context, userID, monthKey string) (*models.UsageRecord, error)
	AddUsage(ctx context.Context, userID, monthKey string, tokens, costCents int) error
}

// Ledger tracks per-user monthly spend and gates paid model calls
type Ledger struct {
	store      Store
	limitCents int
}

// NewLedger creates a ledger with the given monthly ceiling in cents
func NewLedger(store Store, limitCents int) *Ledger {
	return &Ledger{store: store, limitCents: limitCents}
}

// MonthKey returns the calendar-month ledger key for a point in time, e.g. "2026-08"
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// IsWithinBudget reports whether the user may make another paid call this
// month. Read errors count as over budget: the gate fails closed.
func (l *Ledger) IsWithinBudget(ctx context.Context, userID string) bool {
	rec, err := l.store.GetUsage(ctx, userID, MonthKey(time.Now()))
	if err != nil {
		log.Printf("budget check error for user %s: %v", userID, err)
		return false
	}
	if rec == nil {
		// No usage yet
		return true
	}
	return rec.CostCents < l.limitCents
}

// RecordUsage adds one paid call to the user's monthly ledger. Failures are
// logged and swallowed: the cost is already incurred and the response is
// already on its way to the caller.
func (l *Ledger) RecordUsage(ctx context.Context, userID string, tokens, costCents int) {
	if err := l.store.AddUsage(ctx, userID, MonthKey(time.Now()), tokens, costCents); err != nil {
		log.Printf("usage tracking error for user %s: %v", userID, err)
	}
}

// Snapshot returns the derived budget view for a user. Percent used is not
// clamped; values over 100 signal overage.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (*models.BudgetSnapshot, error) {
	rec, err := l.store.GetUsage(ctx, userID, MonthKey(time.Now()))
	if err != nil {
		return nil, err
	}

	var spent, requests int
	if rec != nil {
		spent = rec.CostCents
		requests = rec.RequestCount
	}

	remaining := l.limitCents - spent
	if remaining < 0 {
		remaining = 0
	}

	var estimatedRemaining int
	if requests > 0 && spent > 0 {
		avgCostPerRequest := float64(spent) / float64(requests)
		estimatedRemaining = int(math.Floor(float64(remaining) / avgCostPerRequest))
	} else {
		estimatedRemaining = int(math.Floor(float64(remaining) / EstimatedCostPerRequestCents))
	}

	return &models.BudgetSnapshot{
		RemainingCents:             remaining,
		TotalCents:                 l.limitCents,
		PercentUsed:                int(math.Round(float64(spent) / float64(l.limitCents) * 100)),
		EstimatedRequestsRemaining: estimatedRemaining,
		EstimatedTotalRequests:     int(math.Floor(float64(l.limitCents) / EstimatedCostPerRequestCents)),
	}, nil
}
