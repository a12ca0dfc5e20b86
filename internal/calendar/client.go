// Package calendar talks to the external scheduling backend that owns slot
// availability and booking confirmation.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// ErrUnavailable is returned while the circuit is open and calls are being
// rejected without reaching the backend.
var ErrUnavailable = errors.New("calendar: backend unavailable")

// Client is the scheduling backend surface the booking flow depends on.
type Client interface {
	AvailableSlots(ctx context.Context, clinicID, serviceName string, w Window) ([]Slot, error)
	Book(ctx context.Context, req BookingRequest) (*BookingResult, error)
}

// HTTPClient is the REST implementation of Client. All calls go through a
// circuit breaker so a dead backend fails fast instead of holding every
// conversation for the full timeout.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
}

// NewHTTPClient creates the REST client. A non-positive timeout falls back
// to 10 seconds.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "calendar",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("calendar circuit state changed", "from", from.String(), "to", to.String())
		},
	})
	return c
}

// AvailableSlots lists open slots for a service inside the window.
func (c *HTTPClient) AvailableSlots(ctx context.Context, clinicID, serviceName string, w Window) ([]Slot, error) {
	if strings.TrimSpace(clinicID) == "" {
		return nil, fmt.Errorf("calendar: missing clinic id")
	}

	q := url.Values{}
	q.Set("service", serviceName)
	q.Set("from", w.From.Format("2006-01-02"))
	q.Set("days", strconv.Itoa(w.Days))
	endpoint := fmt.Sprintf("%s/v1/clinics/%s/slots?%s", c.baseURL, url.PathEscape(clinicID), q.Encode())

	var out struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// Book confirms one slot with the backend.
func (c *HTTPClient) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if strings.TrimSpace(req.ClinicID) == "" {
		return nil, fmt.Errorf("calendar: missing clinic id")
	}
	if strings.TrimSpace(req.PatientPhone) == "" {
		return nil, fmt.Errorf("calendar: missing patient phone")
	}

	endpoint := fmt.Sprintf("%s/v1/clinics/%s/bookings", c.baseURL, url.PathEscape(req.ClinicID))
	var out BookingResult
	if err := c.do(ctx, http.MethodPost, endpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, endpoint, payload, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("calendar: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("calendar: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("calendar: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("calendar: backend returned %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("calendar: decode response: %w", err)
		}
	}
	return nil
}
