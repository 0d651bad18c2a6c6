package clinic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingFields   = errors.New("required fields are missing")
	ErrInvalidTier     = errors.New("invalid membership tier")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidDuration = errors.New("treatment duration must be positive")
	ErrInvalidPrice    = errors.New("treatment price cannot be negative")
	ErrSelfDelete      = errors.New("you cannot delete your own account")
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	maxPage        = 1_000_000
)

// PasswordHasher turns a plain password into the stored hash.
type PasswordHasher func(plain string) (string, error)

type Service struct {
	repo Repository
	hash PasswordHasher
	log  *slog.Logger
}

func NewService(repo Repository, hash PasswordHasher, log *slog.Logger) *Service {
	return &Service{repo: repo, hash: hash, log: log.With(slog.String("component", "clinic"))}
}

type ClientInput struct {
	Name      string
	Phone     string
	Email     *string
	Tier      MembershipTier
	ExpiresOn *time.Time
}

type ClientQuery struct {
	Q       string
	Page    int
	PerPage int
}

type TherapistInput struct {
	Name      string
	Specialty *string
}

type RoomInput struct {
	Name        string
	Description *string
}

type TreatmentInput struct {
	Name            string
	DurationMinutes int
	Price           *float64
}

type ReceptionistInput struct {
	Username string
	Email    *string
	Password string
	IsAdmin  bool
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validEmail(email *string) error {
	if email == nil {
		return nil
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func (in ClientInput) normalize() (Client, error) {
	c := Client{
		Name:                strings.TrimSpace(in.Name),
		Phone:               strings.TrimSpace(in.Phone),
		Email:               optional(in.Email),
		Tier:                in.Tier,
		MembershipExpiresOn: in.ExpiresOn,
	}
	if c.Name == "" || c.Phone == "" {
		return Client{}, ErrMissingFields
	}
	if c.Tier == "" {
		c.Tier = TierHotelGuest
	}
	if !c.Tier.Valid() {
		return Client{}, ErrInvalidTier
	}
	if err := validEmail(c.Email); err != nil {
		return Client{}, err
	}
	if !c.Tier.HasExpiry() {
		c.MembershipExpiresOn = nil
	}
	return c, nil
}

// Clients

func (s *Service) CreateClient(ctx context.Context, in ClientInput) (*Client, error) {
	c, err := in.normalize()
	if err != nil {
		return nil, err
	}

	if err := s.phoneAvailable(ctx, c.Phone, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			return nil, err
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.log.Info("client created", slog.String("client_id", created.ID.String()))
	return created, nil
}

func (s *Service) phoneAvailable(ctx context.Context, phone string, self uuid.UUID) error {
	existing, err := s.repo.FindClientByPhone(ctx, phone)
	switch {
	case errors.Is(err, ErrClientNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check phone: %w", err)
	case existing.ID != self:
		return ErrDuplicatePhone
	}
	return nil
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// ListClients returns every client ordered by name.
func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	clients, _, err := s.repo.SearchClients(ctx, "", math.MaxInt32, 0)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// SearchClients matches q against the name (case-insensitive) or the phone.
func (s *Service) SearchClients(ctx context.Context, q ClientQuery) (*ClientPage, error) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	clients, total, err := s.repo.SearchClients(ctx, strings.TrimSpace(q.Q), perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	if clients == nil {
		clients = []Client{}
	}

	return &ClientPage{
		Clients: clients,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	}, nil
}

func (s *Service) UpdateClient(ctx context.Context, id uuid.UUID, in ClientInput) (*Client, error) {
	current, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c.ID = current.ID

	if c.Phone != current.Phone {
		if err := s.phoneAvailable(ctx, c.Phone, current.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.UpdateClient(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDuplicatePhone) || errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetClient(ctx, id); err != nil {
		return err
	}

	busy, err := s.repo.ClientHasAppointments(ctx, id)
	if err != nil {
		return fmt.Errorf("check client appointments: %w", err)
	}
	if busy {
		return ErrClientHasAppointments
	}

	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.log.Info("client deleted", slog.String("client_id", id.String()))
	return nil
}

// Therapists

func (s *Service) CreateTherapist(ctx context.Context, in TherapistInput) (*Therapist, error) {
	t := Therapist{Name: strings.TrimSpace(in.Name), Specialty: optional(in.Specialty)}
	if t.Name == "" {
		return nil, ErrMissingFields
	}
	created, err := s.repo.CreateTherapist(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create therapist: %w", err)
	}
	return created, nil
}

func (s *Service) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	t, err := s.repo.GetTherapist(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get therapist: %w", err)
	}
	return t, nil
}

func (s *Service) ListTherapists(ctx context.Context) ([]Therapist, error) {
	list, err := s.repo.ListTherapists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	return list, nil
}

func (s *Service) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetTherapist(ctx, id); err != nil {
		return err
	}
	busy, err := s.repo.TherapistInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("check therapist usage: %w", err)
	}
	if busy {
		return ErrTherapistInUse
	}
	return s.repo.DeleteTherapist(ctx, id)
}

// Rooms

func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*Room, error) {
	room := Room{Name: strings.TrimSpace(in.Name), Description: optional(in.Description)}
	if room.Name == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.FindRoomByName(ctx, room.Name); err == nil {
		return nil, ErrDuplicateRoomName
	} else if !errors.Is(err, ErrRoomNotFound) {
		return nil, fmt.Errorf("check room name: %w", err)
	}

	created, err := s.repo.CreateRoom(ctx, room)
	if err != nil {
		if errors.Is(err, ErrDuplicateRoomName) {
			return nil, err
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	return created, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	list, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return list, nil
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetRoom(ctx, id); err != nil {
		return err
	}
	busy, err := s.repo.RoomInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("check room usage: %w", err)
	}
	if busy {
		return ErrRoomInUse
	}
	return s.repo.DeleteRoom(ctx, id)
}

// Treatments

func (s *Service) CreateTreatment(ctx context.Context, in TreatmentInput) (*Treatment, error) {
	t := Treatment{Name: strings.TrimSpace(in.Name), DurationMinutes: in.DurationMinutes, Price: in.Price}
	if t.Name == "" {
		return nil, ErrMissingFields
	}
	if t.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if t.Price != nil && *t.Price < 0 {
		return nil, ErrInvalidPrice
	}
	created, err := s.repo.CreateTreatment(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create treatment: %w", err)
	}
	return created, nil
}

func (s *Service) ListTreatments(ctx context.Context) ([]Treatment, error) {
	list, err := s.repo.ListTreatments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	return list, nil
}

func (s *Service) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetTreatment(ctx, id); err != nil {
		return err
	}
	busy, err := s.repo.TreatmentInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("check treatment usage: %w", err)
	}
	if busy {
		return ErrTreatmentInUse
	}
	return s.repo.DeleteTreatment(ctx, id)
}

// Receptionists

func (s *Service) CreateReceptionist(ctx context.Context, in ReceptionistInput) (*Receptionist, error) {
	username := strings.TrimSpace(in.Username)
	email := optional(in.Email)
	if username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindReceptionistByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrReceptionistNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if email != nil {
		if _, err := s.repo.FindReceptionistByEmail(ctx, *email); err == nil {
			return nil, ErrDuplicateEmail
		} else if !errors.Is(err, ErrReceptionistNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.CreateReceptionist(ctx, Receptionist{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create receptionist: %w", err)
	}

	s.log.Info("receptionist created",
		slog.String("receptionist_id", created.ID.String()),
		slog.Bool("admin", created.IsAdmin),
	)
	return created, nil
}

func (s *Service) GetReceptionist(ctx context.Context, id uuid.UUID) (*Receptionist, error) {
	return s.repo.GetReceptionist(ctx, id)
}

func (s *Service) FindReceptionistByUsername(ctx context.Context, username string) (*Receptionist, error) {
	return s.repo.FindReceptionistByUsername(ctx, username)
}

func (s *Service) ListReceptionists(ctx context.Context) ([]Receptionist, error) {
	list, err := s.repo.ListReceptionists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list receptionists: %w", err)
	}
	return list, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	if password == "" {
		return ErrMissingFields
	}
	hash, err := s.hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateReceptionistPassword(ctx, id, hash); err != nil {
		return err
	}
	s.log.Info("password changed", slog.String("receptionist_id", id.String()))
	return nil
}

// DeleteReceptionist removes an account; actor is the receptionist asking.
func (s *Service) DeleteReceptionist(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return ErrSelfDelete
	}
	if err := s.repo.DeleteReceptionist(ctx, id); err != nil {
		return err
	}
	s.log.Info("receptionist deleted", slog.String("receptionist_id", id.String()))
	return nil
}

func (s *Service) PromoteToAdmin(ctx context.Context, username string) (*Receptionist, error) {
	rec, err := s.repo.FindReceptionistByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if rec.IsAdmin {
		return rec, nil
	}
	if err := s.repo.SetReceptionistAdmin(ctx, rec.ID, true); err != nil {
		return nil, err
	}
	rec.IsAdmin = true
	return rec, nil
}
