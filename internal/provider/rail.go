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

// RailLinkUpstream integrates the national rail reservation API. RailLink
// speaks JSON over POST and has a native seat-hold concept.
type RailLinkUpstream struct {
	config config.ProviderConfig
	logger *logrus.Logger
	client *http.Client
}

// railSearchRequest is the RailLink journey search payload
type railSearchRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	TravelDate string `json:"travelDate"` // YYYY-MM-DD
	Passengers int    `json:"passengers"`
}

// railJourney is one bookable departure in a RailLink search response
type railJourney struct {
	JourneyID string  `json:"journeyId"`
	TrainName string  `json:"trainName"`
	SeatID    string  `json:"seatId"`    // seat-class block identifier
	Departure string  `json:"departure"` // RFC3339
	Fare      float64 `json:"fare"`
	Currency  string  `json:"currency"`
}

type railSearchResponse struct {
	Status   string        `json:"status"`
	Journeys []railJourney `json:"journeys"`
	Message  string        `json:"message,omitempty"`
}

type railHoldRequest struct {
	JourneyID string `json:"journeyId"`
	SeatID    string `json:"seatId"`
}

type railHoldResponse struct {
	Status  string `json:"status"` // "held", "seat_taken", "not_found"
	HoldRef string `json:"holdRef"`
	Message string `json:"message,omitempty"`
}

type railConfirmRequest struct {
	HoldRef string `json:"holdRef"`
}

type railConfirmResponse struct {
	Status      string `json:"status"`
	BookingCode string `json:"bookingCode"`
	Message     string `json:"message,omitempty"`
}

// NewRailLinkUpstream creates the rail vendor client
func NewRailLinkUpstream(cfg config.ProviderConfig, logger *logrus.Logger) *RailLinkUpstream {
	return &RailLinkUpstream{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Upstream
func (u *RailLinkUpstream) Name() string { return "raillink" }

// SupportsHold implements Upstream
func (u *RailLinkUpstream) SupportsHold() bool { return true }

// Search implements Upstream
func (u *RailLinkUpstream) Search(ctx context.Context, query cache.Query) ([]models.Offer, error) {
	request := &railSearchRequest{
		From:       query.Origin,
		To:         query.Destination,
		TravelDate: query.Date,
		Passengers: query.PartySize,
	}

	var response railSearchResponse
	if err := u.post(ctx, "/v2/journeys/search", request, &response); err != nil {
		return nil, err
	}
	if response.Status != "ok" {
		return nil, fmt.Errorf("raillink search failed: %s", response.Message)
	}

	now := time.Now()
	offers := make([]models.Offer, 0, len(response.Journeys))
	for _, j := range response.Journeys {
		departs, _ := time.Parse(time.RFC3339, j.Departure)
		offers = append(offers, models.Offer{
			OfferID:      j.JourneyID + ":" + j.SeatID,
			Domain:       models.DomainRail,
			Description:  fmt.Sprintf("%s %s → %s", j.TrainName, query.Origin, query.Destination),
			Price:        j.Fare,
			Currency:     j.Currency,
			CapacityUnit: j.SeatID,
			ProviderRef:  j.JourneyID,
			DepartsAt:    departs,
			FetchedAt:    now,
		})
	}
	return offers, nil
}

// Hold implements Upstream
func (u *RailLinkUpstream) Hold(ctx context.Context, offer models.Offer) (string, error) {
	request := &railHoldRequest{
		JourneyID: offer.ProviderRef,
		SeatID:    offer.CapacityUnit,
	}

	var response railHoldResponse
	if err := u.post(ctx, "/v2/holds", request, &response); err != nil {
		return "", err
	}

	switch response.Status {
	case "held":
		return response.HoldRef, nil
	case "seat_taken", "not_found":
		return "", models.ErrOfferStale
	default:
		return "", fmt.Errorf("raillink hold failed: %s", response.Message)
	}
}

// Confirm implements Upstream
func (u *RailLinkUpstream) Confirm(ctx context.Context, hold *models.Hold) (string, error) {
	request := &railConfirmRequest{HoldRef: hold.ProviderRef}

	var response railConfirmResponse
	if err := u.post(ctx, "/v2/bookings/confirm", request, &response); err != nil {
		return "", err
	}
	if response.Status != "confirmed" {
		return "", fmt.Errorf("raillink confirm failed: %s", response.Message)
	}
	return response.BookingCode, nil
}

// Release implements Upstream
func (u *RailLinkUpstream) Release(ctx context.Context, hold *models.Hold) error {
	request := &railConfirmRequest{HoldRef: hold.ProviderRef}

	var response railHoldResponse
	return u.post(ctx, "/v2/holds/release", request, &response)
}

// post sends a JSON request to a RailLink endpoint and decodes the reply
func (u *RailLinkUpstream) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", u.config.APIKey)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.WithError(err).WithField("path", path).Error("RailLink request failed")
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("raillink returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
