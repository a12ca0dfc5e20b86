// Package bookinglog keeps a durable audit trail of confirmed and cancelled
// bookings, separate from the operational flow state in Redis.
package bookinglog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the audit table. Executed at startup when a database is
// configured.
const Schema = `
CREATE TABLE IF NOT EXISTS booking_log (
	id            UUID PRIMARY KEY,
	clinic_id     TEXT NOT NULL,
	phone_number  TEXT NOT NULL,
	patient_name  TEXT NOT NULL DEFAULT '',
	service_name  TEXT NOT NULL,
	slot_date     TEXT NOT NULL,
	slot_time     TEXT NOT NULL,
	booking_id    TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS booking_log_clinic_idx ON booking_log (clinic_id, created_at);
`

// Entry is one audit row.
type Entry struct {
	ID          uuid.UUID
	ClinicID    string
	PhoneNumber string
	PatientName string
	ServiceName string
	SlotDate    string
	SlotTime    string
	BookingID   string
	Status      string // "confirmed" or "cancelled"
	CreatedAt   time.Time
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes audit rows to Postgres.
type Store struct {
	db querier
}

// NewStore creates the audit store. The querier is satisfied by *pgxpool.Pool.
func NewStore(db querier) *Store {
	if db == nil {
		panic("bookinglog: database cannot be nil")
	}
	return &Store{db: db}
}

// EnsureSchema creates the table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("bookinglog: failed to ensure schema: %w", err)
	}
	return nil
}

// Record inserts one audit row. A zero ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ClinicID == "" || e.PhoneNumber == "" {
		return errors.New("bookinglog: entry requires clinic id and phone number")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = "confirmed"
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_log (
			id, clinic_id, phone_number, patient_name,
			service_name, slot_date, slot_time, booking_id,
			status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.ID, e.ClinicID, e.PhoneNumber, e.PatientName, e.ServiceName, e.SlotDate, e.SlotTime, e.BookingID, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("bookinglog: failed to persist entry: %w", err)
	}
	return nil
}
