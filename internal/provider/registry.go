package provider

import (
	"fmt"

	"github.com/voicetransit/booking-backend/internal/models"
)

// Registry maps provider domains to their adapters
type Registry struct {
	adapters map[models.Domain]*Adapter
}

// NewRegistry creates a registry over the given adapters
func NewRegistry(adapters ...*Adapter) *Registry {
	r := &Registry{
		adapters: make(map[models.Domain]*Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Domain()] = a
	}
	return r
}

// ForDomain returns the adapter for a domain
func (r *Registry) ForDomain(domain models.Domain) (*Adapter, error) {
	adapter, ok := r.adapters[domain]
	if !ok {
		return nil, fmt.Errorf("no provider adapter for domain %q", domain)
	}
	return adapter, nil
}

// All returns every registered adapter
func (r *Registry) All() []*Adapter {
	all := make([]*Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		all = append(all, a)
	}
	return all
}
