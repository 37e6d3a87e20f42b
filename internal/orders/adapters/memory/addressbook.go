package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/google/uuid"
)

// AddressBook is an in-memory store of saved shipping addresses, keyed by
// address ID and scoped to the owning user.
type AddressBook struct {
	mu        sync.RWMutex
	addresses map[string]ownedAddress
}

type ownedAddress struct {
	address domain.Address
	ownerID string
}

// NewAddressBook constructs an empty address book.
func NewAddressBook() *AddressBook {
	return &AddressBook{addresses: make(map[string]ownedAddress)}
}

// GetByID resolves an address, enforcing ownership.
func (b *AddressBook) GetByID(_ context.Context, id, ownerID string) (*domain.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.addresses[id]
	if !ok {
		return nil, ports.ErrAddressNotFound
	}
	if entry.ownerID != ownerID {
		return nil, ports.ErrAddressNotOwned
	}
	copy := entry.address
	return &copy, nil
}

// Save stores the address under a fresh ID for the owner.
func (b *AddressBook) Save(_ context.Context, address domain.Address, ownerID string) (*domain.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	address.ID = uuid.NewString()
	b.addresses[address.ID] = ownedAddress{address: address, ownerID: ownerID}
	copy := address
	return &copy, nil
}
