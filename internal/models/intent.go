package models

import (
	"strconv"
	"time"
)

// ============================================================================
// INTENT (inbound from the NLU collaborator)
// ============================================================================

// Domain identifies the upstream provider domain an intent targets
type Domain string

const (
	DomainRail   Domain = "rail"
	DomainRoad   Domain = "road"
	DomainCinema Domain = "cinema"
)

// IsValid reports whether the domain is one we have an adapter for
func (d Domain) IsValid() bool {
	switch d {
	case DomainRail, DomainRoad, DomainCinema:
		return true
	}
	return false
}

// Intent is the structured booking intent produced by the NLU collaborator.
// The core never sees raw text or audio. Immutable once handed to the
// orchestrator; slot corrections create a merged copy via WithSlots.
type Intent struct {
	Domain      Domain            `json:"domain"`
	Origin      string            `json:"origin,omitempty"`      // rail/road
	Destination string            `json:"destination,omitempty"` // rail/road
	Venue       string            `json:"venue,omitempty"`       // cinema
	Title       string            `json:"title,omitempty"`       // cinema: movie title
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	PartySize   int               `json:"party_size"`
	Confidence  float64           `json:"confidence,omitempty"`
	RawSlots    map[string]string `json:"raw_slots,omitempty"`
}

// MissingSlots returns the required slots the intent does not fill yet.
// Which slots are required depends on the domain.
func (i *Intent) MissingSlots() []string {
	var missing []string

	if !i.Domain.IsValid() {
		missing = append(missing, "domain")
		return missing
	}

	switch i.Domain {
	case DomainRail, DomainRoad:
		if i.Origin == "" {
			missing = append(missing, "origin")
		}
		if i.Destination == "" {
			missing = append(missing, "destination")
		}
	case DomainCinema:
		if i.Venue == "" {
			missing = append(missing, "venue")
		}
		if i.Title == "" {
			missing = append(missing, "title")
		}
	}

	if i.WindowStart.IsZero() {
		missing = append(missing, "window_start")
	}
	if i.PartySize <= 0 {
		missing = append(missing, "party_size")
	}

	return missing
}

// Validate returns a ValidationError listing missing slots, or nil
func (i *Intent) Validate() error {
	if missing := i.MissingSlots(); len(missing) > 0 {
		return &ValidationError{
			Message:      "intent is missing required slots",
			MissingSlots: missing,
		}
	}
	return nil
}

// WithSlots returns a copy of the intent with the given slot values merged
// in. Unknown slot names land in RawSlots so nothing the NLU extracted is
// dropped.
func (i *Intent) WithSlots(slots map[string]string) Intent {
	merged := *i
	merged.RawSlots = make(map[string]string, len(i.RawSlots)+len(slots))
	for k, v := range i.RawSlots {
		merged.RawSlots[k] = v
	}

	for name, value := range slots {
		switch name {
		case "origin":
			merged.Origin = value
		case "destination":
			merged.Destination = value
		case "venue":
			merged.Venue = value
		case "title":
			merged.Title = value
		case "window_start":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				merged.WindowStart = t
			}
		case "window_end":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				merged.WindowEnd = t
			}
		case "party_size":
			if n, err := strconv.Atoi(value); err == nil {
				merged.PartySize = n
			}
		default:
			merged.RawSlots[name] = value
		}
	}

	return merged
}
