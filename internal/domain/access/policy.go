package access

import (
	"clinic-api/internal/domain/users"
)

type Policy struct {
	State        AccessState `json:"state"`
	Capabilities []string    `json:"capabilities"`
}

func ComputePolicy(u users.User) Policy {
	state := ComputeAccessState(u.SubscriptionStatus)

	return Policy{
		State:        state,
		Capabilities: CapabilitiesFor(state),
	}
}
