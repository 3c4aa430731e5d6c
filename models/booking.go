package models

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is the header record of a confirmed or cancelled seat reservation.
type Booking struct {
	ID             string      `bson:"id" json:"id"`
	TripID         string      `bson:"tripId" json:"tripId"`
	OperatorID     string      `bson:"operatorId" json:"operatorId"`         // Owner of the trip, receives change notifications
	OwnerAccountID string      `bson:"ownerAccountId" json:"ownerAccountId"` // Account that made the booking
	Date           string      `bson:"date" json:"date"`                     // Travel date in "YYYY-MM-DD" format
	Seats          []int       `bson:"seats" json:"seats"`
	Passengers     []Passenger `bson:"-" json:"passengers"` // Persisted as separate rows in booking_passengers
	TotalAmount    float64     `bson:"totalAmount" json:"totalAmount"`
	Currency       string      `bson:"currency" json:"currency"`
	Status         string      `bson:"status" json:"status"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
	CancelledAt    *time.Time  `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// Passenger is the traveller occupying one seat of a booking.
type Passenger struct {
	Name   string `bson:"name" json:"name" validate:"required,min=1,max=120"`
	Age    int    `bson:"age" json:"age" validate:"gte=0,lte=120"`
	Gender string `bson:"gender,omitempty" json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

// PassengerRow is the persisted form of a passenger, one document per booked seat.
type PassengerRow struct {
	BookingID string `bson:"bookingId"`
	TripID    string `bson:"tripId"`
	Date      string `bson:"date"`
	Seat      int    `bson:"seat"`
	Status    string `bson:"status"` // Mirrors the booking status; the unique index only covers confirmed rows
	Passenger `bson:",inline"`
}

// Availability is the seat map of a trip on a date.
type Availability struct {
	TripID     string `json:"tripId"`
	Date       string `json:"date"`
	TotalSeats int    `json:"totalSeats"`
	Booked     []int  `json:"booked"`
	Locked     []int  `json:"locked"`
	Available  []int  `json:"available"`
}

// OperatorState is the authoritative snapshot pushed to an operator's subscribers.
type OperatorState struct {
	OperatorID string    `json:"operatorId"`
	Bookings   []Booking `json:"bookings"`
	Confirmed  int       `json:"confirmed"`
	Cancelled  int       `json:"cancelled"`
	Revenue    float64   `json:"revenue"`
	AsOf       time.Time `json:"asOf"`
}
