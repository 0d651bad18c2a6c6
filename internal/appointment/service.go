package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/config"
	"github.com/hackgods/spa-agenda/internal/logger"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
)

var (
	ErrMissingFields     = errors.New("required fields are missing")
	ErrInvalidStatus     = errors.New("invalid appointment status")
	ErrInvalidWindow     = errors.New("end time must be after start time")
	ErrBookingInProgress = errors.New("another booking for this therapist or room is in progress, please retry")
)

type Service struct {
	repo   Repository
	dir    Directory
	locker redisclient.Locker
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

func NewService(repo Repository, dir Directory, locker redisclient.Locker, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		locker: locker,
		loc:    cfg.Location(),
		now:    time.Now,
		log:    log.With(slog.String("component", "appointment")),
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now is the current instant in the clinic's time zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Location is the clinic's time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the clinic-local midnight of the current day.
func (s *Service) Today() time.Time {
	return startOfDay(s.now().In(s.loc))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BookingRequest is what a receptionist submits to book or move an
// appointment. The end follows from the treatment's duration.
type BookingRequest struct {
	ClientID    uuid.UUID
	TherapistID uuid.UUID
	RoomID      uuid.UUID
	TreatmentID uuid.UUID
	StartsAt    time.Time
}

type Booking struct {
	Appointment *Appointment `json:"appointment"`
	Warnings    []Warning    `json:"warnings,omitempty"`
}

func (r BookingRequest) missing() bool {
	return r.ClientID == uuid.Nil || r.TherapistID == uuid.Nil || r.RoomID == uuid.Nil ||
		r.TreatmentID == uuid.Nil || r.StartsAt.IsZero()
}

// resolve loads the records a booking names and derives its interval.
func (s *Service) resolve(ctx context.Context, req BookingRequest) (Candidate, error) {
	if req.missing() {
		return Candidate{}, ErrMissingFields
	}

	treatment, err := s.dir.GetTreatment(ctx, req.TreatmentID)
	if err != nil {
		return Candidate{}, lookupError("treatment", err, clinic.ErrTreatmentNotFound)
	}
	if _, err := s.dir.GetTherapist(ctx, req.TherapistID); err != nil {
		return Candidate{}, lookupError("therapist", err, clinic.ErrTherapistNotFound)
	}
	room, err := s.dir.GetRoom(ctx, req.RoomID)
	if err != nil {
		return Candidate{}, lookupError("room", err, clinic.ErrRoomNotFound)
	}
	if _, err := s.dir.GetClient(ctx, req.ClientID); err != nil {
		return Candidate{}, lookupError("client", err, clinic.ErrClientNotFound)
	}

	start := req.StartsAt.In(s.loc)
	return Candidate{
		Interval:    Interval{Start: start, End: start.Add(treatment.Duration())},
		TherapistID: req.TherapistID,
		RoomID:      req.RoomID,
		ClientID:    req.ClientID,
		RoomName:    room.Name,
	}, nil
}

func lookupError(what string, err, notFound error) error {
	if errors.Is(err, notFound) {
		return notFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// check gathers what surrounds the candidate and applies the booking rules.
func (s *Service) check(ctx context.Context, c Candidate, exclude uuid.UUID) ([]Warning, error) {
	windows, err := s.repo.AvailabilityOn(ctx, c.TherapistID, CalendarDate(c.Start))
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	blocks, err := s.repo.BlocksOverlapping(ctx, c.TherapistID, c.Interval)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	appts, err := s.repo.ListOverlapping(ctx, c.Interval, c.TherapistID, c.RoomID, c.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load overlapping appointments: %w", err)
	}

	return CheckBooking(c, Occupancy{Windows: windows, Blocks: blocks, Appointments: appts}, s.loc, exclude)
}

// withBookingLocks serialises writes touching the candidate's therapist and
// room, and normalises conflicts reported by the database.
func (s *Service) withBookingLocks(ctx context.Context, c Candidate, fn func(ctx context.Context) error) error {
	keys := []string{redisclient.TherapistKey(c.TherapistID), redisclient.RoomKey(c.RoomID)}

	err := s.locker.WithLocks(ctx, keys, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return ErrBookingInProgress
	case errors.Is(err, ErrRoomBusy):
		var named *RoomBusyError
		if errors.As(err, &named) {
			return err
		}
		return &RoomBusyError{Room: c.RoomName}
	}
	return err
}

// Book validates and stores a new appointment for the receptionist bookedBy
// (nil when booked by the system).
func (s *Service) Book(ctx context.Context, bookedBy *uuid.UUID, req BookingRequest) (*Booking, error) {
	c, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	var result Booking
	err = s.withBookingLocks(ctx, c, func(lockCtx context.Context) error {
		warnings, err := s.check(lockCtx, c, uuid.Nil)
		if err != nil {
			return err
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			StartsAt:    c.Start,
			EndsAt:      c.End,
			Status:      StatusScheduled,
			ClientID:    c.ClientID,
			TherapistID: c.TherapistID,
			RoomID:      c.RoomID,
			TreatmentID: req.TreatmentID,
			BookedBy:    bookedBy,
		})
		if err != nil {
			if errors.Is(err, ErrTherapistBusy) || errors.Is(err, ErrRoomBusy) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		result = Booking{Appointment: appt, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.log.Warn("booking rejected",
			logger.Err(err),
			slog.String("therapist_id", c.TherapistID.String()),
			slog.Time("starts_at", c.Start),
		)
		return nil, err
	}

	s.log.Info("appointment booked",
		slog.String("appointment_id", result.Appointment.ID.String()),
		slog.String("therapist_id", c.TherapistID.String()),
		slog.String("room_id", c.RoomID.String()),
		slog.Time("starts_at", c.Start),
		slog.Int("warnings", len(result.Warnings)),
	)
	return &result, nil
}

// Reschedule replaces every booked field of an existing appointment,
// validating the new slot as if the appointment were not there.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req BookingRequest) (*Booking, error) {
	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err, ErrAppointmentNotFound)
	}

	c, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	var result Booking
	err = s.withBookingLocks(ctx, c, func(lockCtx context.Context) error {
		warnings, err := s.check(lockCtx, c, current.ID)
		if err != nil {
			return err
		}

		next := *current
		next.StartsAt, next.EndsAt = c.Start, c.End
		next.ClientID, next.TherapistID, next.RoomID = c.ClientID, c.TherapistID, c.RoomID
		next.TreatmentID = req.TreatmentID

		appt, err := s.repo.UpdateAppointment(lockCtx, next)
		if err != nil {
			switch {
			case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrTherapistBusy), errors.Is(err, ErrRoomBusy):
				return err
			}
			return fmt.Errorf("update appointment: %w", err)
		}

		result = Booking{Appointment: appt, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment rescheduled",
		slog.String("appointment_id", id.String()),
		slog.Time("starts_at", c.Start),
	)
	return &result, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return lookupError("appointment", err, ErrAppointmentNotFound)
	}
	s.log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	return nil
}

// ChangeStatus moves an appointment to status. An empty status changes
// nothing and returns the appointment as stored. Bringing a cancelled
// appointment back re-runs the booking rules on its slot.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	status = Status(strings.TrimSpace(string(status)))
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err, ErrAppointmentNotFound)
	}
	if status == "" {
		return current, nil
	}

	var appt *Appointment
	update := func(ctx context.Context) error {
		updated, err := s.repo.UpdateAppointmentStatus(ctx, id, status)
		if err != nil {
			switch {
			case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrTherapistBusy), errors.Is(err, ErrRoomBusy):
				return err
			}
			return fmt.Errorf("update status: %w", err)
		}
		appt = updated
		return nil
	}

	if current.Active() || status == StatusCancelled {
		err = update(ctx)
	} else {
		err = s.reactivate(ctx, current, update)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment status changed",
		slog.String("appointment_id", id.String()),
		slog.String("from", string(current.Status)),
		slog.String("status", string(status)),
	)
	return appt, nil
}

// reactivate checks a cancelled appointment's slot under the booking locks
// before running update.
func (s *Service) reactivate(ctx context.Context, current *Appointment, update func(ctx context.Context) error) error {
	c := Candidate{
		Interval:    Interval{Start: current.StartsAt.In(s.loc), End: current.EndsAt.In(s.loc)},
		TherapistID: current.TherapistID,
		RoomID:      current.RoomID,
		ClientID:    current.ClientID,
	}
	room, err := s.dir.GetRoom(ctx, current.RoomID)
	if err != nil {
		return lookupError("room", err, clinic.ErrRoomNotFound)
	}
	c.RoomName = room.Name

	err = s.withBookingLocks(ctx, c, func(lockCtx context.Context) error {
		if _, err := s.check(lockCtx, c, current.ID); err != nil {
			return err
		}
		return update(lockCtx)
	})
	if err != nil {
		s.log.Warn("reactivation rejected",
			logger.Err(err),
			slog.String("appointment_id", current.ID.String()),
			slog.Time("starts_at", current.StartsAt),
		)
	}
	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	d, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, lookupError("appointment", err, ErrAppointmentNotFound)
	}
	return d, nil
}

// Between returns appointments starting in [from, to), ordered by start.
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	list, err := s.repo.ListDetailsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// BlocksBetween returns schedule blocks starting in [from, to).
func (s *Service) BlocksBetween(ctx context.Context, from, to time.Time) ([]ScheduleBlock, error) {
	list, err := s.repo.BlocksBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return list, nil
}

// AvailabilityBetween returns every therapist's windows dated within
// [fromDay, toDay].
func (s *Service) AvailabilityBetween(ctx context.Context, fromDay, toDay time.Time) ([]Availability, error) {
	list, err := s.repo.AvailabilityBetween(ctx, CalendarDate(fromDay), CalendarDate(toDay))
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return list, nil
}

type Dashboard struct {
	Date      string              `json:"date"`
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Cancelled int                 `json:"cancelled"`
	Pending   int                 `json:"pending"`
	Next      *AppointmentDetail  `json:"next,omitempty"`
	Today     []AppointmentDetail `json:"today"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now, day := s.Now(), s.Today()

	today, err := s.Between(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Date: day.Format(time.DateOnly), Total: len(today), Today: today}
	if d.Today == nil {
		d.Today = []AppointmentDetail{}
	}
	for i := range today {
		a := &today[i]
		switch a.Status {
		case StatusCompleted:
			d.Completed++
		case StatusCancelled:
			d.Cancelled++
		default:
			if d.Next == nil && a.StartsAt.After(now) {
				d.Next = a
			}
		}
	}
	d.Pending = d.Total - d.Completed - d.Cancelled
	return d, nil
}

type ClientHistory struct {
	Client         *clinic.Client      `json:"client"`
	Appointments   []AppointmentDetail `json:"appointments"`
	TotalSpent     float64             `json:"total_spent"`
	CompletedCount int                 `json:"completed_count"`
}

func (s *Service) ClientHistory(ctx context.Context, clientID uuid.UUID) (*ClientHistory, error) {
	client, err := s.dir.GetClient(ctx, clientID)
	if err != nil {
		return nil, lookupError("client", err, clinic.ErrClientNotFound)
	}

	appts, err := s.repo.ListDetailsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client appointments: %w", err)
	}

	h := &ClientHistory{Client: client, Appointments: appts}
	if h.Appointments == nil {
		h.Appointments = []AppointmentDetail{}
	}
	for _, a := range appts {
		if a.Status != StatusCompleted {
			continue
		}
		h.CompletedCount++
		if a.Treatment != nil && a.Treatment.Price != nil {
			h.TotalSpent += *a.Treatment.Price
		}
	}
	return h, nil
}

// Schedule administration

// WindowInput describes an availability window or a block on one date.
// Times are HH:MM.
type WindowInput struct {
	TherapistID uuid.UUID
	Title       string
	Date        time.Time
	Start       string
	End         string
}

func (in WindowInput) parse() (start, end TimeOfDay, err error) {
	if in.TherapistID == uuid.Nil || in.Date.IsZero() || in.Start == "" || in.End == "" {
		return 0, 0, ErrMissingFields
	}
	if start, err = ParseTimeOfDay(in.Start); err != nil {
		return 0, 0, err
	}
	if end, err = ParseTimeOfDay(in.End); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, ErrInvalidWindow
	}
	return start, end, nil
}

func (s *Service) AddAvailability(ctx context.Context, in WindowInput) (*Availability, error) {
	start, end, err := in.parse()
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.GetTherapist(ctx, in.TherapistID); err != nil {
		return nil, lookupError("therapist", err, clinic.ErrTherapistNotFound)
	}

	a, err := s.repo.CreateAvailability(ctx, Availability{
		TherapistID: in.TherapistID,
		Date:        CalendarDate(in.Date),
		Start:       start,
		End:         end,
	})
	if err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}

	s.log.Info("availability added",
		slog.String("therapist_id", in.TherapistID.String()),
		slog.String("date", a.Date.Format(time.DateOnly)),
		slog.String("start", start.String()),
		slog.String("end", end.String()),
	)
	return a, nil
}

func (s *Service) AddBlock(ctx context.Context, in WindowInput) (*ScheduleBlock, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrMissingFields
	}
	start, end, err := in.parse()
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.GetTherapist(ctx, in.TherapistID); err != nil {
		return nil, lookupError("therapist", err, clinic.ErrTherapistNotFound)
	}

	b, err := s.repo.CreateBlock(ctx, ScheduleBlock{
		TherapistID: in.TherapistID,
		Title:       in.Title,
		StartsAt:    start.On(in.Date, s.loc),
		EndsAt:      end.On(in.Date, s.loc),
	})
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}

	s.log.Info("schedule block added",
		slog.String("therapist_id", in.TherapistID.String()),
		slog.String("title", b.Title),
		slog.Time("starts_at", b.StartsAt),
	)
	return b, nil
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAvailability(ctx, id); err != nil {
		return lookupError("availability", err, ErrAvailabilityNotFound)
	}
	return nil
}

func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteBlock(ctx, id); err != nil {
		return lookupError("block", err, ErrBlockNotFound)
	}
	return nil
}

type TherapistSchedule struct {
	Therapist    *clinic.Therapist `json:"therapist"`
	Availability []Availability    `json:"availability"`
	Blocks       []ScheduleBlock   `json:"blocks"`
}

func (s *Service) TherapistSchedule(ctx context.Context, therapistID uuid.UUID) (*TherapistSchedule, error) {
	therapist, err := s.dir.GetTherapist(ctx, therapistID)
	if err != nil {
		return nil, lookupError("therapist", err, clinic.ErrTherapistNotFound)
	}

	windows, err := s.repo.ListAvailabilityByTherapist(ctx, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	blocks, err := s.repo.ListBlocksByTherapist(ctx, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Date.After(windows[j].Date) })
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].StartsAt.After(blocks[j].StartsAt) })

	if windows == nil {
		windows = []Availability{}
	}
	if blocks == nil {
		blocks = []ScheduleBlock{}
	}
	return &TherapistSchedule{Therapist: therapist, Availability: windows, Blocks: blocks}, nil
}
