package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrTherapistNotFound    = errors.New("therapist not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrTreatmentNotFound    = errors.New("treatment not found")
	ErrReceptionistNotFound = errors.New("receptionist not found")

	ErrDuplicatePhone    = errors.New("a client with this phone already exists")
	ErrDuplicateRoomName = errors.New("a room with this name already exists")
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already registered")

	ErrClientHasAppointments = errors.New("client has appointments and cannot be deleted")
	ErrTherapistInUse        = errors.New("therapist has appointments, availability or blocks and cannot be deleted")
	ErrRoomInUse             = errors.New("room has appointments and cannot be deleted")
	ErrTreatmentInUse        = errors.New("treatment has appointments and cannot be deleted")
)

// Repository is the clinic directory storage.
type Repository interface {
	CreateClient(ctx context.Context, c Client) (*Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	FindClientByPhone(ctx context.Context, phone string) (*Client, error)
	SearchClients(ctx context.Context, q string, limit, offset int) ([]Client, int, error)
	UpdateClient(ctx context.Context, c Client) (*Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
	ClientHasAppointments(ctx context.Context, id uuid.UUID) (bool, error)

	CreateTherapist(ctx context.Context, t Therapist) (*Therapist, error)
	GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error)
	ListTherapists(ctx context.Context) ([]Therapist, error)
	DeleteTherapist(ctx context.Context, id uuid.UUID) error
	TherapistInUse(ctx context.Context, id uuid.UUID) (bool, error)

	CreateRoom(ctx context.Context, r Room) (*Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	FindRoomByName(ctx context.Context, name string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	RoomInUse(ctx context.Context, id uuid.UUID) (bool, error)

	CreateTreatment(ctx context.Context, t Treatment) (*Treatment, error)
	GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error)
	ListTreatments(ctx context.Context) ([]Treatment, error)
	DeleteTreatment(ctx context.Context, id uuid.UUID) error
	TreatmentInUse(ctx context.Context, id uuid.UUID) (bool, error)

	CreateReceptionist(ctx context.Context, r Receptionist) (*Receptionist, error)
	GetReceptionist(ctx context.Context, id uuid.UUID) (*Receptionist, error)
	FindReceptionistByUsername(ctx context.Context, username string) (*Receptionist, error)
	FindReceptionistByEmail(ctx context.Context, email string) (*Receptionist, error)
	ListReceptionists(ctx context.Context) ([]Receptionist, error)
	UpdateReceptionistPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetReceptionistAdmin(ctx context.Context, id uuid.UUID, admin bool) error
	DeleteReceptionist(ctx context.Context, id uuid.UUID) error
}
