package database

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/voicetransit/booking-backend/internal/models"
)

// BookingRepository handles database operations for the bookings table,
// the only durable table in the system. Attempts, holds and cached
// availability are ephemeral by design; a committed booking is not.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create writes a committed booking. Inserting the same attempt twice hits
// the unique constraint on attempt_id, which keeps the completed-attempt /
// stored-booking pairing one-to-one even under a retried store write.
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, attempt_id, reference, domain, offer_id, description,
			capacity_unit, amount, currency, payment_ref, confirmation_code
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (attempt_id) DO NOTHING
		RETURNING committed_at
	`

	if booking.BookingID == uuid.Nil {
		booking.BookingID = uuid.New()
	}

	err := r.db.QueryRow(
		query,
		booking.BookingID, booking.AttemptID, booking.Reference, booking.Domain,
		booking.OfferID, booking.Description, booking.CapacityUnit,
		booking.Amount, booking.Currency, booking.PaymentRef, booking.ConfirmationCode,
	).Scan(&booking.CommittedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict path: the booking was already stored by an earlier retry
		existing, lookupErr := r.GetByAttemptID(booking.AttemptID)
		if lookupErr != nil {
			return lookupErr
		}
		*booking = *existing
		return nil
	}
	return err
}

// GetByID retrieves a booking by its id
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `
		SELECT id, attempt_id, reference, domain, offer_id, description,
			   capacity_unit, amount, currency, payment_ref, confirmation_code,
			   committed_at
		FROM bookings
		WHERE id = $1
	`

	var booking models.Booking
	if err := r.db.Get(&booking, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// GetByReference retrieves a booking by its human-facing reference
func (r *BookingRepository) GetByReference(reference string) (*models.Booking, error) {
	query := `
		SELECT id, attempt_id, reference, domain, offer_id, description,
			   capacity_unit, amount, currency, payment_ref, confirmation_code,
			   committed_at
		FROM bookings
		WHERE reference = $1
	`

	var booking models.Booking
	if err := r.db.Get(&booking, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// GetByAttemptID retrieves the booking committed by an attempt
func (r *BookingRepository) GetByAttemptID(attemptID uuid.UUID) (*models.Booking, error) {
	query := `
		SELECT id, attempt_id, reference, domain, offer_id, description,
			   capacity_unit, amount, currency, payment_ref, confirmation_code,
			   committed_at
		FROM bookings
		WHERE attempt_id = $1
	`

	var booking models.Booking
	if err := r.db.Get(&booking, query, attemptID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}
