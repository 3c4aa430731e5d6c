package tasks

import (
	"encoding/json"
	"testing"

	"seatbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEmailTask(t *testing.T) {
	payload := models.BookingEmailPayload{BookingID: "bk-1", Seats: []int{5, 6}, Status: models.BookingStatusConfirmed}

	task, opts, err := NewBookingEmailTask(TypeBookingConfirmationEmail, payload)
	require.NoError(t, err)
	assert.Equal(t, TypeBookingConfirmationEmail, task.Type())
	assert.Len(t, opts, 3)

	var decoded models.BookingEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload.BookingID, decoded.BookingID)
	assert.Equal(t, []int{5, 6}, decoded.Seats)
}

func TestNewBookingEmailTask_RejectsUnknownType(t *testing.T) {
	_, _, err := NewBookingEmailTask(TypeAuditLog, models.BookingEmailPayload{})
	assert.Error(t, err)
}

func TestNewAuditTask(t *testing.T) {
	task, _, err := NewAuditTask(models.AuditEntry{ID: "a-1", Action: models.AuditBookingCreated})
	require.NoError(t, err)
	assert.Equal(t, TypeAuditLog, task.Type())
	assert.Contains(t, string(task.Payload()), `"action":"booking_created"`)
}

func TestBuildTask(t *testing.T) {
	task, _, err := buildTask(TypeBookingCancellationEmail, models.BookingEmailPayload{BookingID: "bk-1"})
	require.NoError(t, err)
	assert.Equal(t, TypeBookingCancellationEmail, task.Type())

	task, _, err = buildTask(TypeAuditLog, models.AuditEntry{ID: "a-1"})
	require.NoError(t, err)
	assert.Equal(t, TypeAuditLog, task.Type())
}

func TestBuildTask_Rejects(t *testing.T) {
	cases := map[string]struct {
		jobType string
		payload any
	}{
		"unknown type":          {"email:newsletter", models.BookingEmailPayload{}},
		"audit payload to mail": {TypeBookingConfirmationEmail, models.AuditEntry{}},
		"mail payload to audit": {TypeAuditLog, models.BookingEmailPayload{}},
		"untyped map":           {TypeAuditLog, map[string]string{"id": "a-1"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := buildTask(tc.jobType, tc.payload)
			assert.ErrorIs(t, err, ErrUnknownJob)
		})
	}
}
