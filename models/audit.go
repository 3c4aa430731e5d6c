package models

import "time"

const (
	AuditBookingCreated   = "booking_created"
	AuditBookingCancelled = "booking_cancelled"
)

// AuditEntry records a booking state change for later review.
type AuditEntry struct {
	ID        string    `bson:"id" json:"id"`
	Action    string    `bson:"action" json:"action"`
	BookingID string    `bson:"bookingId" json:"bookingId"`
	ActorID   string    `bson:"actorId" json:"actorId"`
	TripID    string    `bson:"tripId" json:"tripId"`
	Date      string    `bson:"date" json:"date"`
	Seats     []int     `bson:"seats" json:"seats"`
	Amount    float64   `bson:"amount" json:"amount"`
	At        time.Time `bson:"at" json:"at"`
}

// BookingEmailPayload is the job payload for confirmation and cancellation mails.
type BookingEmailPayload struct {
	BookingID      string    `json:"bookingId"`
	OwnerAccountID string    `json:"ownerAccountId"`
	TripID         string    `json:"tripId"`
	Date           string    `json:"date"`
	Seats          []int     `json:"seats"`
	TotalAmount    float64   `json:"totalAmount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}
