package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// AddressBook resolves and persists saved shipping addresses for registered users.
type AddressBook interface {
	// GetByID returns the address only when it belongs to ownerID;
	// ErrAddressNotOwned otherwise.
	GetByID(ctx context.Context, id, ownerID string) (*domain.Address, error)
	Save(ctx context.Context, address domain.Address, ownerID string) (*domain.Address, error)
}

var (
	// ErrAddressNotFound is returned when the saved address does not exist.
	ErrAddressNotFound = errors.New("address not found")
	// ErrAddressNotOwned is returned when the address belongs to someone else.
	ErrAddressNotOwned = errors.New("address does not belong to this user")
)
