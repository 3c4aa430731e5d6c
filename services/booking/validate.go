package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"seatbook/models"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// validateShape checks the request without touching any store.
func validateShape(req CreateBookingRequest) error {
	if req.RequesterID == "" {
		return validationError("requester is required")
	}
	if req.TripID == "" {
		return validationError("tripId is required")
	}
	if err := validateDate(req.Date); err != nil {
		return err
	}
	if len(req.Seats) == 0 {
		return validationError("at least one seat is required")
	}
	if len(req.Seats) != len(req.Passengers) {
		return validationError("%d seats requested for %d passengers", len(req.Seats), len(req.Passengers))
	}

	seen := make(map[int]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if seat < 1 {
			return validationError("seat %d is out of range", seat)
		}
		if _, dup := seen[seat]; dup {
			return validationError("seat %d requested twice", seat)
		}
		seen[seat] = struct{}{}
	}

	for i, p := range req.Passengers {
		if err := validate.Struct(p); err != nil {
			return validationError("passenger %d: %s", i+1, describe(err))
		}
	}
	return nil
}

// validateSeatRange checks the seats against the trip's capacity.
func validateSeatRange(seats []int, trip *models.Trip) error {
	for _, seat := range seats {
		if seat < 1 || seat > trip.TotalSeats {
			return validationError("seat %d is out of range 1-%d", seat, trip.TotalSeats)
		}
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return validationError("date %q must be YYYY-MM-DD", date)
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
