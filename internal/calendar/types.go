package calendar

import (
	"fmt"
	"time"
)

// Slot is one bookable opening as returned by the scheduling backend.
// Date and times are clinic-local.
type Slot struct {
	Date        string `json:"date"`      // 2006-01-02
	StartTime   string `json:"startTime"` // 15:04
	EndTime     string `json:"endTime"`
	DurationMin int    `json:"durationMinutes"`
}

// StartAt combines Date and StartTime in the given location.
func (s Slot) StartAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid slot %s %s: %w", s.Date, s.StartTime, err)
	}
	return t, nil
}

// Window bounds an availability query.
type Window struct {
	From time.Time
	Days int
}

// BookingRequest carries everything the backend needs to confirm a slot.
type BookingRequest struct {
	ClinicID     string `json:"clinicId"`
	ServiceID    string `json:"serviceId,omitempty"`
	ServiceName  string `json:"serviceName"`
	Slot         Slot   `json:"slot"`
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
}

// BookingResult is the backend's confirmation.
type BookingResult struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}
