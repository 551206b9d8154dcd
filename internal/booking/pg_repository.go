package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const blockCols = `id, provider_id, date::text, start_time, end_time, booked, created_at, updated_at`

const apptCols = `id, provider_id, requester_id, block_id, slot_start_time, slot_end_time,
		duration_minutes, price::text, status, payment_status, meeting_link,
		cancellation_reason, cancelled_by, cancelled_at,
		reschedule_reason, reschedule_requested_by, reschedule_requested_at,
		completed_at, expires_at, created_at, updated_at`

// Helpers

func scanBlock(row pgx.Row) (*AvailabilityBlock, error) {
	var b AvailabilityBlock

	err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.Booked,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	return &b, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var price string

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.RequesterID,
		&a.BlockID,
		&a.SlotStartTime,
		&a.SlotEndTime,
		&a.DurationMinutes,
		&price,
		&a.Status,
		&a.PaymentStatus,
		&a.MeetingLink,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.RescheduleReason,
		&a.RescheduleRequestedBy,
		&a.RescheduleRequestedAt,
		&a.CompletedAt,
		&a.ExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Availability blocks

func (r *PgRepository) CreateBlock(ctx context.Context, b *AvailabilityBlock) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_blocks (id, provider_id, date, start_time, end_time, booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, now(), now())
	`, b.ID, b.ProviderID, b.Date, b.StartTime, b.EndTime)
	if err != nil {
		return fmt.Errorf("insert availability block: %w", err)
	}
	return nil
}

func (r *PgRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (*AvailabilityBlock, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+blockCols+`
		FROM availability_blocks
		WHERE id = $1
	`, id)
	return scanBlock(row)
}

func (r *PgRepository) ListBlocksByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]AvailabilityBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockCols+`
		FROM availability_blocks
		WHERE provider_id = $1 AND date = $2
		ORDER BY start_time
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdateBlockTimes(ctx context.Context, id uuid.UUID, date, start, end string) (*AvailabilityBlock, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_blocks
		SET date = $2,
		    start_time = $3,
		    end_time = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+blockCols+`
	`, id, date, start, end)
	return scanBlock(row)
}

func (r *PgRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (r *PgRepository) SetBlockBooked(ctx context.Context, id uuid.UUID, booked bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE availability_blocks
		SET booked = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, booked)
	return err
}

// Ledger reads

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetActiveForSlot(ctx context.Context, blockID uuid.UUID, slotStart string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE block_id = $1
		  AND slot_start_time = $2
		  AND status NOT IN ('cancelled', 'rejected')
	`, blockID, slotStart)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveForBlocks(ctx context.Context, blockIDs []uuid.UUID) ([]Appointment, error) {
	if len(blockIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE block_id = ANY($1)
		  AND status NOT IN ('cancelled', 'rejected')
		ORDER BY slot_start_time
	`, blockIDs)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountForBlock(ctx context.Context, blockID uuid.UUID, activeOnly bool) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE block_id = $1
		  AND ($2 = false OR status NOT IN ('cancelled', 'rejected'))
	`, blockID, activeOnly).Scan(&n)
	return n, err
}

func (r *PgRepository) ListAppointmentsByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, requesterID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Ledger writes

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, provider_id, requester_id, block_id, slot_start_time, slot_end_time,
			duration_minutes, price, status, payment_status, expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+apptCols+`
	`, id, a.ProviderID, a.RequesterID, a.BlockID, a.SlotStartTime, a.SlotEndTime,
		a.DurationMinutes, a.Price.StringFixed(2), a.Status, a.PaymentStatus, a.ExpiresAt)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptCols+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, from Status, reason string, by *uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    cancelled_by = $3,
		    cancelled_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+apptCols+`
	`, id, reason, by, at, from)
	return scanAppointment(row)
}

func (r *PgRepository) MarkRescheduleRequested(ctx context.Context, id uuid.UUID, from Status, reason string, by uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'reschedule_requested',
		    reschedule_reason = $2,
		    reschedule_requested_by = $3,
		    reschedule_requested_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+apptCols+`
	`, id, reason, by, at, from)
	return scanAppointment(row)
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id uuid.UUID, from Status, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptCols+`
	`, id, at, from)
	return scanAppointment(row)
}

func (r *PgRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET meeting_link = $2,
		    status = 'scheduled',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('confirmed', 'scheduled')
		RETURNING `+apptCols+`
	`, id, link)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) ConfirmPaid(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'confirmed',
		    payment_status = 'completed',
		    expires_at = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+apptCols+`
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET payment_status = $2,
		    expires_at = CASE WHEN $2 = 'completed' THEN NULL ELSE expires_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptCols+`
	`, id, ps)
	return scanAppointment(row)
}

// MoveSlot relies on the partial unique index over active (block_id,
// slot_start_time) pairs: the rebind either lands whole or trips the index,
// so a failed reschedule leaves the original binding in place.
func (r *PgRepository) MoveSlot(ctx context.Context, id uuid.UUID, newBlockID uuid.UUID, newStart, newEnd string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET block_id = $2,
		    slot_start_time = $3,
		    slot_end_time = $4,
		    status = 'confirmed',
		    reschedule_reason = NULL,
		    reschedule_requested_by = NULL,
		    reschedule_requested_at = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed', 'reschedule_requested')
		RETURNING `+apptCols+`
	`, id, newBlockID, newStart, newEnd)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotAlreadyBooked
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotReschedulable
		}
		return nil, err
	}
	return appt, nil
}

// Expiry worker

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE status = 'pending'
		  AND payment_status <> 'completed'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Audit log

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
