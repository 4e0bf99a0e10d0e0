package stripe

import (
	"strings"

	"clinic-api/internal/domain/users"
)

// NormalizeStripeStatus maps a Stripe subscription status onto the status
// stored on the user record. Unknown values lock the account as inactive.
func NormalizeStripeStatus(s string) users.SubscriptionStatus {
	switch strings.TrimSpace(s) {
	case "active":
		return users.StatusActive
	case "trialing":
		return users.StatusTrial
	case "past_due":
		return users.StatusPastDue
	case "canceled":
		return users.StatusCancelled
	default:
		return users.StatusInactive
	}
}
