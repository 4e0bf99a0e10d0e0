package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// ProfileChanges carries the only fields a user may edit on their own record.
type ProfileChanges struct {
	Name  *string
	Email *string
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)

	UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (*User, error)
	SetPassword(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error

	// AssignCustomer stores the provider customer id once; later calls keep
	// the first value and return it.
	AssignCustomer(ctx context.Context, id, customerID string) (string, error)
	SetSubscription(ctx context.Context, id, subscriptionID string, status SubscriptionStatus) error
	SetSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("users.Create: %w", err)
	}
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *GormRepository) first(ctx context.Context, query string, args ...any) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users.first: %w", err)
	}
	return &user, nil
}

func (r *GormRepository) List(ctx context.Context) ([]User, error) {
	var list []User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("users.List: %w", err)
	}
	return list, nil
}

func (r *GormRepository) UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (*User, error) {
	updates := map[string]interface{}{}
	if changes.Name != nil {
		updates["name"] = strings.TrimSpace(*changes.Name)
	}
	if changes.Email != nil {
		updates["email"] = NormalizeEmail(*changes.Email)
	}
	if len(updates) > 0 {
		if err := r.updates(ctx, id, updates); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrEmailTaken
			}
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *GormRepository) SetPassword(ctx context.Context, id, hash string) error {
	return r.updates(ctx, id, map[string]interface{}{"password": hash})
}

func (r *GormRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updates(ctx, id, map[string]interface{}{"is_active": active})
}

func (r *GormRepository) AssignCustomer(ctx context.Context, id, customerID string) (string, error) {
	res := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND customer_id IS NULL", id).
		Updates(map[string]interface{}{
			"customer_id": customerID,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return "", fmt.Errorf("users.AssignCustomer: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return customerID, nil
	}

	// either the user is gone or another request assigned a customer first
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user.CustomerID == nil {
		return "", fmt.Errorf("users.AssignCustomer: customer id not stored for %s", id)
	}
	return *user.CustomerID, nil
}

func (r *GormRepository) SetSubscription(ctx context.Context, id, subscriptionID string, status SubscriptionStatus) error {
	return r.updates(ctx, id, map[string]interface{}{
		"subscription_id":     subscriptionID,
		"subscription_status": status,
	})
}

func (r *GormRepository) SetSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) error {
	return r.updates(ctx, id, map[string]interface{}{"subscription_status": status})
}

func (r *GormRepository) updates(ctx context.Context, id string, updates map[string]interface{}) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return res.Error
		}
		return fmt.Errorf("users.updates: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
