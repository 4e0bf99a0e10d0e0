package users

import (
	"time"

	"clinic-api/internal/domain/access"
	"clinic-api/internal/domain/users"
)

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

type UserDTO struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        users.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	HasPassword bool       `json:"hasPassword"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type BillingDTO struct {
	Status         users.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionID *string                  `json:"subscriptionId"`
	CustomerLinked bool                     `json:"customerLinked"`
}

type AccessDTO struct {
	State        access.AccessState `json:"state"` // full|limited|locked
	Capabilities []string           `json:"capabilities"`
}

func BuildMeResponse(u *users.User) MeResponse {
	policy := access.ComputePolicy(*u)

	return MeResponse{
		User: UserDTO{
			ID:          u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Role:        u.Role,
			IsActive:    u.IsActive,
			HasPassword: u.HasPassword(),
			CreatedAt:   u.CreatedAt,
		},
		Billing: BillingDTO{
			Status:         u.SubscriptionStatus,
			SubscriptionID: u.SubscriptionID,
			CustomerLinked: u.CustomerID != nil && *u.CustomerID != "",
		},
		Access: AccessDTO{
			State:        policy.State,
			Capabilities: policy.Capabilities,
		},
	}
}
