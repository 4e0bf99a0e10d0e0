package users

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusTrial     SubscriptionStatus = "trial"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTrial, StatusPastDue, StatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID       string  `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password *string `gorm:"" json:"-"`
	Name     string  `gorm:"not null" json:"name"`
	Role     Role    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsActive bool    `gorm:"not null;default:true" json:"isActive"`

	SubscriptionStatus SubscriptionStatus `gorm:"column:subscription_status;type:varchar(20);not null;default:'trial'" json:"subscriptionStatus"`
	SubscriptionID     *string            `gorm:"column:subscription_id;index:idx_users_subscription_id" json:"subscriptionId"`
	CustomerID         *string            `gorm:"column:customer_id;uniqueIndex:idx_users_customer_id" json:"customerId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPassword is false for accounts created through external sign-in.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// New builds a freshly registered account: active, role user, trial status,
// no provider references.
func New(email, name string, passwordHash *string) *User {
	return &User{
		Email:              email,
		Name:               name,
		Password:           passwordHash,
		Role:               RoleUser,
		IsActive:           true,
		SubscriptionStatus: StatusTrial,
	}
}
