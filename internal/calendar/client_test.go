package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/clinics/cardio-prime/slots", r.URL.Path)
		assert.Equal(t, "Consulta Cardiológica", r.URL.Query().Get("service"))
		assert.Equal(t, "2026-09-01", r.URL.Query().Get("from"))
		assert.Equal(t, "14", r.URL.Query().Get("days"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"slots": []Slot{
				{Date: "2026-09-02", StartTime: "09:00", EndTime: "09:30", DurationMin: 30},
				{Date: "2026-09-02", StartTime: "14:30", EndTime: "15:00", DurationMin: 30},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", time.Second, nil)
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	slots, err := c.AvailableSlots(context.Background(), "cardio-prime", "Consulta Cardiológica", Window{From: from, Days: 14})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, 30, slots[1].DurationMin)
}

func TestBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/clinics/cardio-prime/bookings", r.URL.Path)

		var req BookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Maria Silva", req.PatientName)
		assert.Equal(t, "2026-09-02", req.Slot.Date)

		json.NewEncoder(w).Encode(BookingResult{BookingID: "bk_123", Status: "confirmed"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, nil)
	res, err := c.Book(context.Background(), BookingRequest{
		ClinicID:     "cardio-prime",
		ServiceName:  "Consulta Cardiológica",
		Slot:         Slot{Date: "2026-09-02", StartTime: "09:00", EndTime: "09:30", DurationMin: 30},
		PatientName:  "Maria Silva",
		PatientPhone: "+5511999990000",
	})
	require.NoError(t, err)
	assert.Equal(t, "bk_123", res.BookingID)
	assert.Equal(t, "confirmed", res.Status)
}

func TestBookValidatesInput(t *testing.T) {
	c := NewHTTPClient("http://localhost:0", "", time.Second, nil)

	_, err := c.Book(context.Background(), BookingRequest{PatientPhone: "+5511999990000"})
	assert.ErrorContains(t, err, "missing clinic id")

	_, err = c.Book(context.Background(), BookingRequest{ClinicID: "cardio-prime"})
	assert.ErrorContains(t, err, "missing patient phone")
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, nil)
	win := Window{From: time.Now(), Days: 7}

	for i := 0; i < 3; i++ {
		_, err := c.AvailableSlots(context.Background(), "cardio-prime", "Consulta", win)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := c.AvailableSlots(context.Background(), "cardio-prime", "Consulta", win)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNonOKStatusIsTruncatedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, nil)
	_, err := c.AvailableSlots(context.Background(), "cardio-prime", "Consulta", Window{From: time.Now(), Days: 7})
	assert.ErrorContains(t, err, "backend returned 404")
}

func TestSlotStartAt(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	s := Slot{Date: "2026-09-02", StartTime: "14:30"}
	at, err := s.StartAt(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 2, 14, 30, 0, 0, loc), at)

	_, err = Slot{Date: "bad", StartTime: "14:30"}.StartAt(loc)
	assert.Error(t, err)
}
