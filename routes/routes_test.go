package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"seatbook/handlers"
	"seatbook/services/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*session.Claims, error) {
	return nil, session.ErrSessionInvalid
}

func (rejectAll) AuthenticateCookie(context.Context, string, string, string) error {
	return session.ErrSessionSuperseded
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, &handlers.HandlerBundle{
		Sessions:         rejectAll{},
		Register:         ok,
		Login:            ok,
		Logout:           ok,
		Me:               ok,
		CreateBooking:    ok,
		CancelBooking:    ok,
		MyBookings:       ok,
		TripAvailability: ok,
		UpsertTrip:       ok,
		OperatorStream:   ok,
	})

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/api/auth/login", http.StatusNoContent},
		{http.MethodPost, "/api/auth/register", http.StatusNoContent},
		{http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/bookings", http.StatusUnauthorized},
		{http.MethodPost, "/api/bookings/b1/cancel", http.StatusUnauthorized},
		{http.MethodGet, "/api/bookings/mine", http.StatusUnauthorized},
		{http.MethodGet, "/api/trips/bus-1/availability", http.StatusUnauthorized},
		{http.MethodGet, "/api/operators/stream", http.StatusUnauthorized},
		{http.MethodPut, "/api/operators/trips/bus-1", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer x")
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}
