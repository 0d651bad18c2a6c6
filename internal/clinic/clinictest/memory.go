// Package clinictest provides an in-memory clinic.Repository for tests.
package clinictest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/clinic"
)

type Repository struct {
	mu            sync.Mutex
	clients       map[uuid.UUID]clinic.Client
	therapists    map[uuid.UUID]clinic.Therapist
	rooms         map[uuid.UUID]clinic.Room
	treatments    map[uuid.UUID]clinic.Treatment
	receptionists map[uuid.UUID]clinic.Receptionist

	// InUse marks ids that existing appointments, availability or blocks
	// refer to.
	InUse map[uuid.UUID]bool
}

func New() *Repository {
	return &Repository{
		clients:       map[uuid.UUID]clinic.Client{},
		therapists:    map[uuid.UUID]clinic.Therapist{},
		rooms:         map[uuid.UUID]clinic.Room{},
		treatments:    map[uuid.UUID]clinic.Treatment{},
		receptionists: map[uuid.UUID]clinic.Receptionist{},
		InUse:         map[uuid.UUID]bool{},
	}
}

func (r *Repository) MarkInUse(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.InUse[id] = true
}

func (r *Repository) inUse(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.InUse[id], nil
}

func stamp(id *uuid.UUID, created, updated *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func (r *Repository) CreateClient(_ context.Context, c clinic.Client) (*clinic.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.clients {
		if other.Phone == c.Phone {
			return nil, clinic.ErrDuplicatePhone
		}
	}
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	r.clients[c.ID] = c
	return &c, nil
}

func (r *Repository) GetClient(_ context.Context, id uuid.UUID) (*clinic.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, clinic.ErrClientNotFound
	}
	return &c, nil
}

func (r *Repository) FindClientByPhone(_ context.Context, phone string) (*clinic.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.Phone == phone {
			return &c, nil
		}
	}
	return nil, clinic.ErrClientNotFound
}

func (r *Repository) SearchClients(_ context.Context, q string, limit, offset int) ([]clinic.Client, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("invalid page window: limit %d offset %d", limit, offset)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []clinic.Client
	for _, c := range r.clients {
		if q == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) || strings.Contains(c.Phone, q) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *Repository) UpdateClient(_ context.Context, c clinic.Client) (*clinic.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.clients[c.ID]
	if !ok {
		return nil, clinic.ErrClientNotFound
	}
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.clients[c.ID] = c
	return &c, nil
}

func (r *Repository) DeleteClient(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return clinic.ErrClientNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *Repository) ClientHasAppointments(_ context.Context, id uuid.UUID) (bool, error) {
	return r.inUse(id)
}

func (r *Repository) CreateTherapist(_ context.Context, t clinic.Therapist) (*clinic.Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	r.therapists[t.ID] = t
	return &t, nil
}

func (r *Repository) GetTherapist(_ context.Context, id uuid.UUID) (*clinic.Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.therapists[id]
	if !ok {
		return nil, clinic.ErrTherapistNotFound
	}
	return &t, nil
}

func (r *Repository) ListTherapists(_ context.Context) ([]clinic.Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]clinic.Therapist, 0, len(r.therapists))
	for _, t := range r.therapists {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *Repository) DeleteTherapist(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.therapists[id]; !ok {
		return clinic.ErrTherapistNotFound
	}
	delete(r.therapists, id)
	return nil
}

func (r *Repository) TherapistInUse(_ context.Context, id uuid.UUID) (bool, error) {
	return r.inUse(id)
}

func (r *Repository) CreateRoom(_ context.Context, room clinic.Room) (*clinic.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.rooms {
		if other.Name == room.Name {
			return nil, clinic.ErrDuplicateRoomName
		}
	}
	stamp(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	r.rooms[room.ID] = room
	return &room, nil
}

func (r *Repository) GetRoom(_ context.Context, id uuid.UUID) (*clinic.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, clinic.ErrRoomNotFound
	}
	return &room, nil
}

func (r *Repository) FindRoomByName(_ context.Context, name string) (*clinic.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.Name == name {
			return &room, nil
		}
	}
	return nil, clinic.ErrRoomNotFound
}

func (r *Repository) ListRooms(_ context.Context) ([]clinic.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]clinic.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		list = append(list, room)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *Repository) DeleteRoom(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return clinic.ErrRoomNotFound
	}
	delete(r.rooms, id)
	return nil
}

func (r *Repository) RoomInUse(_ context.Context, id uuid.UUID) (bool, error) {
	return r.inUse(id)
}

func (r *Repository) CreateTreatment(_ context.Context, t clinic.Treatment) (*clinic.Treatment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	r.treatments[t.ID] = t
	return &t, nil
}

func (r *Repository) GetTreatment(_ context.Context, id uuid.UUID) (*clinic.Treatment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.treatments[id]
	if !ok {
		return nil, clinic.ErrTreatmentNotFound
	}
	return &t, nil
}

func (r *Repository) ListTreatments(_ context.Context) ([]clinic.Treatment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]clinic.Treatment, 0, len(r.treatments))
	for _, t := range r.treatments {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *Repository) DeleteTreatment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.treatments[id]; !ok {
		return clinic.ErrTreatmentNotFound
	}
	delete(r.treatments, id)
	return nil
}

func (r *Repository) TreatmentInUse(_ context.Context, id uuid.UUID) (bool, error) {
	return r.inUse(id)
}

func (r *Repository) CreateReceptionist(_ context.Context, rec clinic.Receptionist) (*clinic.Receptionist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.receptionists {
		if other.Username == rec.Username {
			return nil, clinic.ErrDuplicateUsername
		}
		if rec.Email != nil && other.Email != nil && *other.Email == *rec.Email {
			return nil, clinic.ErrDuplicateEmail
		}
	}
	stamp(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	r.receptionists[rec.ID] = rec
	return &rec, nil
}

func (r *Repository) GetReceptionist(_ context.Context, id uuid.UUID) (*clinic.Receptionist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receptionists[id]
	if !ok {
		return nil, clinic.ErrReceptionistNotFound
	}
	return &rec, nil
}

func (r *Repository) FindReceptionistByUsername(_ context.Context, username string) (*clinic.Receptionist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.receptionists {
		if rec.Username == username {
			return &rec, nil
		}
	}
	return nil, clinic.ErrReceptionistNotFound
}

func (r *Repository) FindReceptionistByEmail(_ context.Context, email string) (*clinic.Receptionist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.receptionists {
		if rec.Email != nil && *rec.Email == email {
			return &rec, nil
		}
	}
	return nil, clinic.ErrReceptionistNotFound
}

func (r *Repository) ListReceptionists(_ context.Context) ([]clinic.Receptionist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]clinic.Receptionist, 0, len(r.receptionists))
	for _, rec := range r.receptionists {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}

func (r *Repository) UpdateReceptionistPassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receptionists[id]
	if !ok {
		return clinic.ErrReceptionistNotFound
	}
	rec.PasswordHash = hash
	r.receptionists[id] = rec
	return nil
}

func (r *Repository) SetReceptionistAdmin(_ context.Context, id uuid.UUID, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receptionists[id]
	if !ok {
		return clinic.ErrReceptionistNotFound
	}
	rec.IsAdmin = admin
	r.receptionists[id] = rec
	return nil
}

func (r *Repository) DeleteReceptionist(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.receptionists[id]; !ok {
		return clinic.ErrReceptionistNotFound
	}
	delete(r.receptionists, id)
	return nil
}

var _ clinic.Repository = (*Repository)(nil)
