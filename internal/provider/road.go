package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/models"
)

// RoadWaysUpstream integrates the intercity coach operator API. RoadWays
// uses bearer-token auth and holds whole seat blocks rather than single
// seats, so the capacity unit is the block id.
type RoadWaysUpstream struct {
	config config.ProviderConfig
	logger *logrus.Logger
	client *http.Client
}

type roadTripQuery struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Seats       int    `json:"seats"`
}

type roadTrip struct {
	TripID       string  `json:"trip_id"`
	Operator     string  `json:"operator"`
	BlockID      string  `json:"block_id"`
	DepartsAt    string  `json:"departs_at"`
	PricePerSeat float64 `json:"price_per_seat"`
	Currency     string  `json:"currency"`
}

type roadTripsResponse struct {
	Trips []roadTrip `json:"trips"`
	Error string     `json:"error,omitempty"`
}

type roadReserveRequest struct {
	TripID  string `json:"trip_id"`
	BlockID string `json:"block_id"`
}

type roadReserveResponse struct {
	Reserved   bool   `json:"reserved"`
	ReserveRef string `json:"reserve_ref"`
	Error      string `json:"error,omitempty"`
}

type roadTicketRequest struct {
	ReserveRef string `json:"reserve_ref"`
}

type roadTicketResponse struct {
	Issued    bool   `json:"issued"`
	TicketRef string `json:"ticket_ref"`
	Error     string `json:"error,omitempty"`
}

// NewRoadWaysUpstream creates the coach vendor client
func NewRoadWaysUpstream(cfg config.ProviderConfig, logger *logrus.Logger) *RoadWaysUpstream {
	return &RoadWaysUpstream{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Upstream
func (u *RoadWaysUpstream) Name() string { return "roadways" }

// SupportsHold implements Upstream
func (u *RoadWaysUpstream) SupportsHold() bool { return true }

// Search implements Upstream
func (u *RoadWaysUpstream) Search(ctx context.Context, query cache.Query) ([]models.Offer, error) {
	request := &roadTripQuery{
		Origin:      query.Origin,
		Destination: query.Destination,
		Date:        query.Date,
		Seats:       query.PartySize,
	}

	var response roadTripsResponse
	if err := u.post(ctx, "/api/trips/search", request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, fmt.Errorf("roadways search failed: %s", response.Error)
	}

	now := time.Now()
	offers := make([]models.Offer, 0, len(response.Trips))
	for _, trip := range response.Trips {
		departs, _ := time.Parse(time.RFC3339, trip.DepartsAt)
		offers = append(offers, models.Offer{
			OfferID:      trip.TripID + ":" + trip.BlockID,
			Domain:       models.DomainRoad,
			Description:  fmt.Sprintf("%s %s → %s", trip.Operator, query.Origin, query.Destination),
			Price:        trip.PricePerSeat * float64(query.PartySize),
			Currency:     trip.Currency,
			CapacityUnit: trip.BlockID,
			ProviderRef:  trip.TripID,
			DepartsAt:    departs,
			FetchedAt:    now,
		})
	}
	return offers, nil
}

// Hold implements Upstream
func (u *RoadWaysUpstream) Hold(ctx context.Context, offer models.Offer) (string, error) {
	request := &roadReserveRequest{
		TripID:  offer.ProviderRef,
		BlockID: offer.CapacityUnit,
	}

	var response roadReserveResponse
	if err := u.post(ctx, "/api/reservations", request, &response); err != nil {
		return "", err
	}
	if !response.Reserved {
		// RoadWays reports an already-sold block as a plain error string
		return "", models.ErrOfferStale
	}
	return response.ReserveRef, nil
}

// Confirm implements Upstream
func (u *RoadWaysUpstream) Confirm(ctx context.Context, hold *models.Hold) (string, error) {
	request := &roadTicketRequest{ReserveRef: hold.ProviderRef}

	var response roadTicketResponse
	if err := u.post(ctx, "/api/tickets", request, &response); err != nil {
		return "", err
	}
	if !response.Issued {
		return "", fmt.Errorf("roadways ticket issue failed: %s", response.Error)
	}
	return response.TicketRef, nil
}

// Release implements Upstream
func (u *RoadWaysUpstream) Release(ctx context.Context, hold *models.Hold) error {
	request := &roadTicketRequest{ReserveRef: hold.ProviderRef}

	var response roadReserveResponse
	return u.post(ctx, "/api/reservations/cancel", request, &response)
}

func (u *RoadWaysUpstream) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.config.APIKey)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.WithError(err).WithField("path", path).Error("RoadWays request failed")
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roadways returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
