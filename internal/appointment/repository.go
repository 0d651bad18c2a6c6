package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/clinic"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrBlockNotFound        = errors.New("schedule block not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// For conflict checks: appointments overlapping iv that share the
	// therapist, the room or the client.
	ListOverlapping(ctx context.Context, iv Interval, therapistID, roomID, clientID uuid.UUID) ([]Appointment, error)

	// Appointments starting in [from, to), ordered by start.
	ListDetailsBetween(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error)
	// A client's appointments, newest first.
	ListDetailsByClient(ctx context.Context, clientID uuid.UUID) ([]AppointmentDetail, error)

	CreateAvailability(ctx context.Context, a Availability) (*Availability, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error
	// Windows of one therapist on one calendar date.
	AvailabilityOn(ctx context.Context, therapistID uuid.UUID, day time.Time) ([]Availability, error)
	// Windows of every therapist with a date in [fromDay, toDay].
	AvailabilityBetween(ctx context.Context, fromDay, toDay time.Time) ([]Availability, error)
	ListAvailabilityByTherapist(ctx context.Context, therapistID uuid.UUID) ([]Availability, error)

	CreateBlock(ctx context.Context, b ScheduleBlock) (*ScheduleBlock, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	BlocksOverlapping(ctx context.Context, therapistID uuid.UUID, iv Interval) ([]ScheduleBlock, error)
	// Blocks starting in [from, to), ordered by start.
	BlocksBetween(ctx context.Context, from, to time.Time) ([]ScheduleBlock, error)
	ListBlocksByTherapist(ctx context.Context, therapistID uuid.UUID) ([]ScheduleBlock, error)
}

// Directory resolves the clinic records an appointment refers to.
type Directory interface {
	GetClient(ctx context.Context, id uuid.UUID) (*clinic.Client, error)
	GetTherapist(ctx context.Context, id uuid.UUID) (*clinic.Therapist, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*clinic.Room, error)
	GetTreatment(ctx context.Context, id uuid.UUID) (*clinic.Treatment, error)
}
