package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/db"
)

const (
	therapistOverlapConstraint = "appointments_therapist_no_overlap"
	roomOverlapConstraint      = "appointments_room_no_overlap"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

const appointmentColumns = `id, starts_at, ends_at, status, client_id, therapist_id, room_id, treatment_id, booked_by, created_at, updated_at`

const detailQuery = `
	SELECT a.id, a.starts_at, a.ends_at, a.status, a.client_id, a.therapist_id, a.room_id, a.treatment_id, a.booked_by, a.created_at, a.updated_at,
	       c.id, c.name, c.phone, c.email, c.membership_tier, c.membership_expires_on, c.created_at, c.updated_at,
	       t.id, t.name, t.specialty, t.created_at, t.updated_at,
	       r.id, r.name, r.description, r.created_at, r.updated_at,
	       tr.id, tr.name, tr.duration_minutes, tr.price, tr.created_at, tr.updated_at,
	       u.username
	FROM appointments a
	JOIN clients c ON c.id = a.client_id
	JOIN therapists t ON t.id = a.therapist_id
	JOIN rooms r ON r.id = a.room_id
	JOIN treatments tr ON tr.id = a.treatment_id
	LEFT JOIN receptionists u ON u.id = a.booked_by
`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.ClientID,
		&a.TherapistID,
		&a.RoomID,
		&a.TreatmentID,
		&a.BookedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var (
		d  AppointmentDetail
		c  clinic.Client
		t  clinic.Therapist
		r  clinic.Room
		tr clinic.Treatment
	)
	err := row.Scan(
		&d.ID, &d.StartsAt, &d.EndsAt, &d.Status, &d.ClientID, &d.TherapistID, &d.RoomID, &d.TreatmentID, &d.BookedBy, &d.CreatedAt, &d.UpdatedAt,
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.Tier, &c.MembershipExpiresOn, &c.CreatedAt, &c.UpdatedAt,
		&t.ID, &t.Name, &t.Specialty, &t.CreatedAt, &t.UpdatedAt,
		&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt,
		&tr.ID, &tr.Name, &tr.DurationMinutes, &tr.Price, &tr.CreatedAt, &tr.UpdatedAt,
		&d.BookedByUsername,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	d.Client, d.Therapist, d.Room, d.Treatment = &c, &t, &r, &tr
	return &d, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var (
		a          Availability
		day        pgtype.Date
		start, end pgtype.Time
	)
	err := row.Scan(&a.ID, &a.TherapistID, &day, &start, &end, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}
	a.Date = CalendarDate(day.Time)
	a.Start = fromPgTime(start)
	a.End = fromPgTime(end)
	return &a, nil
}

func scanBlock(row pgx.Row) (*ScheduleBlock, error) {
	var b ScheduleBlock
	err := row.Scan(&b.ID, &b.TherapistID, &b.Title, &b.StartsAt, &b.EndsAt, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func toPgDate(day time.Time) pgtype.Date {
	return pgtype.Date{Time: CalendarDate(day), Valid: true}
}

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// overlapError turns exclusion constraint violations into booking errors.
func overlapError(err error) error {
	switch {
	case db.IsExclusionViolation(err, therapistOverlapConstraint):
		return ErrTherapistBusy
	case db.IsExclusionViolation(err, roomOverlapConstraint):
		return ErrRoomBusy
	}
	return err
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, starts_at, ends_at, status, client_id, therapist_id, room_id, treatment_id, booked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), a.StartsAt, a.EndsAt, a.Status, a.ClientID, a.TherapistID, a.RoomID, a.TreatmentID, a.BookedBy)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, overlapError(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET starts_at = $2,
		    ends_at = $3,
		    client_id = $4,
		    therapist_id = $5,
		    room_id = $6,
		    treatment_id = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.StartsAt, a.EndsAt, a.ClientID, a.TherapistID, a.RoomID, a.TreatmentID)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, overlapError(err)
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, status)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, overlapError(err)
	}
	return updated, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	return scanDetail(r.pool.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id))
}

func (r *PgRepository) ListOverlapping(ctx context.Context, iv Interval, therapistID, roomID, clientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE starts_at < $2
		  AND ends_at > $1
		  AND (therapist_id = $3 OR room_id = $4 OR client_id = $5)
		ORDER BY starts_at
	`, iv.Start, iv.End, therapistID, roomID, clientID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping appointments: %w", err)
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) ListDetailsBetween(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.starts_at >= $1 AND a.starts_at < $2
		ORDER BY a.starts_at, a.id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments between: %w", err)
	}
	return collect(rows, scanDetail)
}

func (r *PgRepository) ListDetailsByClient(ctx context.Context, clientID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.client_id = $1
		ORDER BY a.starts_at DESC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client appointments: %w", err)
	}
	return collect(rows, scanDetail)
}

// Availability

const availabilityColumns = `id, therapist_id, day, start_time, end_time, created_at`

func (r *PgRepository) CreateAvailability(ctx context.Context, a Availability) (*Availability, error) {
	return scanAvailability(r.pool.QueryRow(ctx, `
		INSERT INTO availabilities (id, therapist_id, day, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+availabilityColumns,
		uuid.New(), a.TherapistID, toPgDate(a.Date), toPgTime(a.Start), toPgTime(a.End)))
}

func (r *PgRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (r *PgRepository) AvailabilityOn(ctx context.Context, therapistID uuid.UUID, day time.Time) ([]Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE therapist_id = $1 AND day = $2
		ORDER BY start_time
	`, therapistID, toPgDate(day))
	if err != nil {
		return nil, fmt.Errorf("list availability on day: %w", err)
	}
	return collect(rows, scanAvailability)
}

func (r *PgRepository) AvailabilityBetween(ctx context.Context, fromDay, toDay time.Time) ([]Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE day BETWEEN $1 AND $2
		ORDER BY day, start_time
	`, toPgDate(fromDay), toPgDate(toDay))
	if err != nil {
		return nil, fmt.Errorf("list availability between: %w", err)
	}
	return collect(rows, scanAvailability)
}

func (r *PgRepository) ListAvailabilityByTherapist(ctx context.Context, therapistID uuid.UUID) ([]Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE therapist_id = $1
		ORDER BY day DESC, start_time
	`, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list therapist availability: %w", err)
	}
	return collect(rows, scanAvailability)
}

// Blocks

const blockColumns = `id, therapist_id, title, starts_at, ends_at, created_at`

func (r *PgRepository) CreateBlock(ctx context.Context, b ScheduleBlock) (*ScheduleBlock, error) {
	return scanBlock(r.pool.QueryRow(ctx, `
		INSERT INTO schedule_blocks (id, therapist_id, title, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+blockColumns,
		uuid.New(), b.TherapistID, b.Title, b.StartsAt, b.EndsAt))
}

func (r *PgRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedule_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (r *PgRepository) BlocksOverlapping(ctx context.Context, therapistID uuid.UUID, iv Interval) ([]ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockColumns+`
		FROM schedule_blocks
		WHERE therapist_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at
	`, therapistID, iv.Start, iv.End)
	if err != nil {
		return nil, fmt.Errorf("list overlapping blocks: %w", err)
	}
	return collect(rows, scanBlock)
}

func (r *PgRepository) BlocksBetween(ctx context.Context, from, to time.Time) ([]ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockColumns+`
		FROM schedule_blocks
		WHERE starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocks between: %w", err)
	}
	return collect(rows, scanBlock)
}

func (r *PgRepository) ListBlocksByTherapist(ctx context.Context, therapistID uuid.UUID) ([]ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockColumns+`
		FROM schedule_blocks
		WHERE therapist_id = $1
		ORDER BY starts_at DESC
	`, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list therapist blocks: %w", err)
	}
	return collect(rows, scanBlock)
}
