package domain

import (
	"encoding/json"
	"time"
)

// Endpoint is a known peer address together with the quality metadata used
// to order outbound connection attempts.
type Endpoint struct {
	Address  string    `json:"address"`
	Services uint64    `json:"services"`
	LastSeen time.Time `json:"lastSeen"`
	Attempts int       `json:"attempts"`
}

// AddressBook is the set of known peer endpoints. It is a plain in-memory
// entity, callers are responsible for serializing concurrent access.
type AddressBook struct {
	endpoints map[string]*Endpoint
}

// NewAddressBook returns an empty address book.
func NewAddressBook() *AddressBook {
	return &AddressBook{endpoints: map[string]*Endpoint{}}
}

// Add inserts or refreshes an endpoint, updating its advertised services and
// last-seen time.
func (b *AddressBook) Add(address string, services uint64) {
	if len(address) <= 0 {
		return
	}
	if ep, ok := b.endpoints[address]; ok {
		ep.Services = services
		ep.LastSeen = time.Now()
		return
	}
	b.endpoints[address] = &Endpoint{
		Address:  address,
		Services: services,
		LastSeen: time.Now(),
	}
}

// MarkAttempt records an outbound connection attempt to the endpoint.
func (b *AddressBook) MarkAttempt(address string) {
	if ep, ok := b.endpoints[address]; ok {
		ep.Attempts++
	}
}

// Len returns the number of known endpoints.
func (b *AddressBook) Len() int {
	return len(b.endpoints)
}

// Pick returns the least-attempted endpoint advertising all required
// services, skipping excluded addresses. The boolean is false when no
// endpoint qualifies.
func (b *AddressBook) Pick(
	exclude map[string]struct{}, requiredServices uint64,
) (Endpoint, bool) {
	var best *Endpoint
	for _, ep := range b.endpoints {
		if _, skip := exclude[ep.Address]; skip {
			continue
		}
		if ep.Services&requiredServices != requiredServices {
			continue
		}
		if best == nil || ep.Attempts < best.Attempts ||
			(ep.Attempts == best.Attempts && ep.LastSeen.After(best.LastSeen)) {
			best = ep
		}
	}
	if best == nil {
		return Endpoint{}, false
	}
	return *best, true
}

type addressBookSnapshot struct {
	Endpoints []*Endpoint `json:"endpoints"`
}

// Serialize returns the address book as an opaque snapshot blob.
func (b *AddressBook) Serialize() ([]byte, error) {
	snapshot := addressBookSnapshot{
		Endpoints: make([]*Endpoint, 0, len(b.endpoints)),
	}
	for _, ep := range b.endpoints {
		snapshot.Endpoints = append(snapshot.Endpoints, ep)
	}
	return json.Marshal(snapshot)
}

// DeserializeAddressBook rebuilds an address book from a snapshot blob.
func DeserializeAddressBook(buf []byte) (*AddressBook, error) {
	var snapshot addressBookSnapshot
	if err := json.Unmarshal(buf, &snapshot); err != nil {
		return nil, err
	}
	book := NewAddressBook()
	for _, ep := range snapshot.Endpoints {
		book.endpoints[ep.Address] = ep
	}
	return book, nil
}
