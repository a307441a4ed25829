package models

import "time"

// Offer is an immutable snapshot of a bookable option returned by a provider
// adapter search. Never mutated after creation; may go stale, which is only
// detected at hold time.
type Offer struct {
	OfferID      string    `json:"offer_id"`
	Domain       Domain    `json:"domain"`
	Description  string    `json:"description"` // e.g. "IC-402 Colombo → Kandy 08:30"
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	CapacityUnit string    `json:"capacity_unit"` // smallest exclusively-allocatable resource id
	ProviderRef  string    `json:"provider_ref"`  // vendor-opaque reference
	DepartsAt    time.Time `json:"departs_at"`
	FetchedAt    time.Time `json:"fetched_at"`
}
