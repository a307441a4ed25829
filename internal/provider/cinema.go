package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicetransit/booking-backend/internal/cache"
	"github.com/voicetransit/booking-backend/internal/config"
	"github.com/voicetransit/booking-backend/internal/models"
)

// CineSeatUpstream integrates the cinema chain's showtime API. CineSeat has
// no hold concept: seats go straight from available to sold, so holds for
// this domain live only in the local ledger and a stale offer is discovered
// at confirm time.
type CineSeatUpstream struct {
	config config.ProviderConfig
	logger *logrus.Logger
	client *http.Client
}

type cineShowtime struct {
	ShowtimeID string  `json:"showtime_id"`
	Film       string  `json:"film"`
	Screen     string  `json:"screen"`
	SeatGroup  string  `json:"seat_group"`
	StartsAt   string  `json:"starts_at"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

type cineShowtimesResponse struct {
	Showtimes []cineShowtime `json:"showtimes"`
}

type cinePurchaseRequest struct {
	ShowtimeID string `json:"showtime_id"`
	SeatGroup  string `json:"seat_group"`
	Seats      int    `json:"seats"`
}

type cinePurchaseResponse struct {
	Result     string `json:"result"` // "sold", "unavailable"
	TicketCode string `json:"ticket_code"`
	Reason     string `json:"reason,omitempty"`
}

// NewCineSeatUpstream creates the cinema vendor client
func NewCineSeatUpstream(cfg config.ProviderConfig, logger *logrus.Logger) *CineSeatUpstream {
	return &CineSeatUpstream{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Upstream
func (u *CineSeatUpstream) Name() string { return "cineseat" }

// SupportsHold implements Upstream
func (u *CineSeatUpstream) SupportsHold() bool { return false }

// Search implements Upstream. CineSeat exposes search as a GET with query
// parameters rather than a JSON POST.
func (u *CineSeatUpstream) Search(ctx context.Context, query cache.Query) ([]models.Offer, error) {
	params := url.Values{}
	params.Set("venue", query.Venue)
	params.Set("film", query.Title)
	params.Set("date", query.Date)
	params.Set("seats", fmt.Sprintf("%d", query.PartySize))

	endpoint := fmt.Sprintf("%s/showtimes?%s", u.config.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Key", u.config.APIKey)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.WithError(err).Error("CineSeat search failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cineseat returned status %d: %s", resp.StatusCode, string(body))
	}

	var response cineShowtimesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	now := time.Now()
	offers := make([]models.Offer, 0, len(response.Showtimes))
	for _, s := range response.Showtimes {
		starts, _ := time.Parse(time.RFC3339, s.StartsAt)
		offers = append(offers, models.Offer{
			OfferID:      s.ShowtimeID + ":" + s.SeatGroup,
			Domain:       models.DomainCinema,
			Description:  fmt.Sprintf("%s (%s, %s)", s.Film, s.Screen, s.SeatGroup),
			Price:        s.Price * float64(query.PartySize),
			Currency:     s.Currency,
			CapacityUnit: s.ShowtimeID + "/" + s.SeatGroup,
			ProviderRef:  s.ShowtimeID,
			DepartsAt:    starts,
			FetchedAt:    now,
		})
	}
	return offers, nil
}

// Hold implements Upstream. Never called: SupportsHold is false.
func (u *CineSeatUpstream) Hold(_ context.Context, _ models.Offer) (string, error) {
	return "", fmt.Errorf("cineseat has no hold API")
}

// Confirm implements Upstream: a direct purchase. An unavailable seat group
// here means the local hold raced a walk-in sale, which surfaces as a stale
// offer.
func (u *CineSeatUpstream) Confirm(ctx context.Context, hold *models.Hold) (string, error) {
	request := &cinePurchaseRequest{
		ShowtimeID: hold.ProviderRef,
		SeatGroup:  hold.CapacityUnit,
		Seats:      1,
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.BaseURL+"/purchases",
		bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", u.config.APIKey)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.WithError(err).Error("CineSeat purchase failed")
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cineseat returned status %d: %s", resp.StatusCode, string(body))
	}

	var response cinePurchaseResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	switch response.Result {
	case "sold":
		return response.TicketCode, nil
	case "unavailable":
		return "", models.ErrOfferStale
	default:
		return "", fmt.Errorf("cineseat purchase failed: %s", response.Reason)
	}
}

// Release implements Upstream. No upstream hold to release.
func (u *CineSeatUpstream) Release(_ context.Context, _ *models.Hold) error {
	return nil
}
