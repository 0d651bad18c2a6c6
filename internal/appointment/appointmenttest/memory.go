// Package appointmenttest provides in-memory stand-ins for the appointment
// storage and booking locks.
package appointmenttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/clinic/clinictest"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
)

// Repository keeps appointments, availability and blocks in memory and
// hydrates details from a clinictest.Repository.
type Repository struct {
	mu           sync.Mutex
	dir          *clinictest.Repository
	appointments map[uuid.UUID]appointment.Appointment
	windows      map[uuid.UUID]appointment.Availability
	blocks       map[uuid.UUID]appointment.ScheduleBlock

	// Usernames resolves booked_by for details.
	Usernames map[uuid.UUID]string
}

func New(dir *clinictest.Repository) *Repository {
	return &Repository{
		dir:          dir,
		appointments: map[uuid.UUID]appointment.Appointment{},
		windows:      map[uuid.UUID]appointment.Availability{},
		blocks:       map[uuid.UUID]appointment.ScheduleBlock{},
		Usernames:    map[uuid.UUID]string{},
	}
}

func (r *Repository) CreateAppointment(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.excluded(a); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *Repository) UpdateAppointment(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.appointments[a.ID]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status, a.BookedBy, a.CreatedAt = current.Status, current.BookedBy, current.CreatedAt
	if err := r.excluded(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now().UTC()
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *Repository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = status
	if err := r.excluded(a); err != nil {
		return nil, err
	}
	r.appointments[id] = a
	return &a, nil
}

// excluded mirrors the table's exclusion constraints: two active
// appointments may not overlap on the same therapist or room.
func (r *Repository) excluded(a appointment.Appointment) error {
	if !a.Active() {
		return nil
	}
	for _, other := range r.appointments {
		if other.ID == a.ID || !other.Active() || !appointment.Overlaps(other.Interval(), a.Interval()) {
			continue
		}
		if other.TherapistID == a.TherapistID {
			return appointment.ErrTherapistBusy
		}
		if other.RoomID == a.RoomID {
			return appointment.ErrRoomBusy
		}
	}
	return nil
}

func (r *Repository) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *Repository) GetAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Repository) detail(ctx context.Context, a appointment.Appointment) appointment.AppointmentDetail {
	d := appointment.AppointmentDetail{Appointment: a}
	d.Client, _ = r.dir.GetClient(ctx, a.ClientID)
	d.Therapist, _ = r.dir.GetTherapist(ctx, a.TherapistID)
	d.Room, _ = r.dir.GetRoom(ctx, a.RoomID)
	d.Treatment, _ = r.dir.GetTreatment(ctx, a.TreatmentID)
	if a.BookedBy != nil {
		if name, ok := r.Usernames[*a.BookedBy]; ok {
			d.BookedByUsername = &name
		}
	}
	return d
}

func (r *Repository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	a, err := r.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.detail(ctx, *a)
	return &d, nil
}

func (r *Repository) ListOverlapping(_ context.Context, iv appointment.Interval, therapistID, roomID, clientID uuid.UUID) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range r.appointments {
		if !appointment.Overlaps(a.Interval(), iv) {
			continue
		}
		if a.TherapistID == therapistID || a.RoomID == roomID || a.ClientID == clientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *Repository) listDetails(ctx context.Context, keep func(appointment.Appointment) bool) []appointment.AppointmentDetail {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appointment.AppointmentDetail
	for _, a := range r.appointments {
		if keep(a) {
			out = append(out, r.detail(ctx, a))
		}
	}
	return out
}

func (r *Repository) ListDetailsBetween(ctx context.Context, from, to time.Time) ([]appointment.AppointmentDetail, error) {
	out := r.listDetails(ctx, func(a appointment.Appointment) bool {
		return !a.StartsAt.Before(from) && a.StartsAt.Before(to)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *Repository) ListDetailsByClient(ctx context.Context, clientID uuid.UUID) ([]appointment.AppointmentDetail, error) {
	out := r.listDetails(ctx, func(a appointment.Appointment) bool { return a.ClientID == clientID })
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

func (r *Repository) CreateAvailability(_ context.Context, a appointment.Availability) (*appointment.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Date = appointment.CalendarDate(a.Date)
	a.CreatedAt = time.Now().UTC()
	r.windows[a.ID] = a
	return &a, nil
}

func (r *Repository) DeleteAvailability(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[id]; !ok {
		return appointment.ErrAvailabilityNotFound
	}
	delete(r.windows, id)
	return nil
}

func (r *Repository) filterWindows(keep func(appointment.Availability) bool) []appointment.Availability {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appointment.Availability
	for _, w := range r.windows {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func (r *Repository) AvailabilityOn(_ context.Context, therapistID uuid.UUID, day time.Time) ([]appointment.Availability, error) {
	day = appointment.CalendarDate(day)
	return r.filterWindows(func(w appointment.Availability) bool {
		return w.TherapistID == therapistID && w.Date.Equal(day)
	}), nil
}

func (r *Repository) AvailabilityBetween(_ context.Context, fromDay, toDay time.Time) ([]appointment.Availability, error) {
	fromDay, toDay = appointment.CalendarDate(fromDay), appointment.CalendarDate(toDay)
	return r.filterWindows(func(w appointment.Availability) bool {
		return !w.Date.Before(fromDay) && !w.Date.After(toDay)
	}), nil
}

func (r *Repository) ListAvailabilityByTherapist(_ context.Context, therapistID uuid.UUID) ([]appointment.Availability, error) {
	return r.filterWindows(func(w appointment.Availability) bool { return w.TherapistID == therapistID }), nil
}

func (r *Repository) CreateBlock(_ context.Context, b appointment.ScheduleBlock) (*appointment.ScheduleBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	r.blocks[b.ID] = b
	return &b, nil
}

func (r *Repository) DeleteBlock(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[id]; !ok {
		return appointment.ErrBlockNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *Repository) filterBlocks(keep func(appointment.ScheduleBlock) bool) []appointment.ScheduleBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appointment.ScheduleBlock
	for _, b := range r.blocks {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (r *Repository) BlocksOverlapping(_ context.Context, therapistID uuid.UUID, iv appointment.Interval) ([]appointment.ScheduleBlock, error) {
	return r.filterBlocks(func(b appointment.ScheduleBlock) bool {
		return b.TherapistID == therapistID && appointment.Overlaps(b.Interval(), iv)
	}), nil
}

func (r *Repository) BlocksBetween(_ context.Context, from, to time.Time) ([]appointment.ScheduleBlock, error) {
	return r.filterBlocks(func(b appointment.ScheduleBlock) bool {
		return !b.StartsAt.Before(from) && b.StartsAt.Before(to)
	}), nil
}

func (r *Repository) ListBlocksByTherapist(_ context.Context, therapistID uuid.UUID) ([]appointment.ScheduleBlock, error) {
	return r.filterBlocks(func(b appointment.ScheduleBlock) bool { return b.TherapistID == therapistID }), nil
}

var _ appointment.Repository = (*Repository)(nil)
var _ appointment.Directory = (*clinictest.Repository)(nil)
var _ redisclient.Locker = (*Locker)(nil)

// Locker serialises callers in-process. Held keys are rejected the way the
// Redis locker rejects them.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool

	// Calls records the key sets requested, in order.
	Calls [][]string
}

func NewLocker() *Locker {
	return &Locker{held: map[string]bool{}}
}

// Hold marks key as taken by someone else.
func (l *Locker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
}

func (l *Locker) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.Calls = append(l.Calls, append([]string(nil), keys...))
	for _, k := range keys {
		if l.held[k] {
			l.mu.Unlock()
			return redisclient.ErrLockNotAcquired
		}
	}
	for _, k := range keys {
		l.held[k] = true
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		for _, k := range keys {
			delete(l.held, k)
		}
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// Seed is a minimal clinic: one therapist, one room, one client and a
// sixty minute treatment priced at 50.
type Seed struct {
	Therapist clinic.Therapist
	Room      clinic.Room
	Client    clinic.Client
	Treatment clinic.Treatment
}

func NewSeed(ctx context.Context, dir *clinictest.Repository) Seed {
	price := 50.0
	t, _ := dir.CreateTherapist(ctx, clinic.Therapist{Name: "Marta"})
	room, _ := dir.CreateRoom(ctx, clinic.Room{Name: "Gabinete 1"})
	c, _ := dir.CreateClient(ctx, clinic.Client{Name: "Lucía", Phone: "5550001", Tier: clinic.TierHotelGuest})
	tr, _ := dir.CreateTreatment(ctx, clinic.Treatment{Name: "Masaje relajante", DurationMinutes: 60, Price: &price})
	return Seed{Therapist: *t, Room: *room, Client: *c, Treatment: *tr}
}
