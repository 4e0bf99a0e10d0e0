package access

import (
	"clinic-api/internal/domain/users"
)

// Effective access for the clinic apps: full|limited|locked
func ComputeAccessState(status users.SubscriptionStatus) AccessState {
	switch status {
	case users.StatusActive, users.StatusTrial:
		return AccessFull

	// keep clinical data reachable while the card is retried
	case users.StatusPastDue:
		return AccessLimited

	default:
		return AccessLocked
	}
}
