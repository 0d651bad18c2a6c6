package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

type View string

const (
	ViewDaily   View = "daily"
	ViewColumns View = "columns"
	ViewWeekly  View = "weekly"
)

// ParseView maps a query value to a view. Anything unknown is daily.
func ParseView(s string) View {
	switch View(s) {
	case ViewColumns, ViewWeekly:
		return View(s)
	}
	return ViewDaily
}

var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// Schedule is the appointment side the agenda reads from.
type Schedule interface {
	Between(ctx context.Context, from, to time.Time) ([]appointment.AppointmentDetail, error)
	BlocksBetween(ctx context.Context, from, to time.Time) ([]appointment.ScheduleBlock, error)
	AvailabilityBetween(ctx context.Context, fromDay, toDay time.Time) ([]appointment.Availability, error)
	Now() time.Time
	Location() *time.Location
}

// Directory lists the clinic records shown next to the grid.
type Directory interface {
	ListTherapists(ctx context.Context) ([]clinic.Therapist, error)
	ListRooms(ctx context.Context) ([]clinic.Room, error)
	ListTreatments(ctx context.Context) ([]clinic.Treatment, error)
	ListClients(ctx context.Context) ([]clinic.Client, error)
}

type Service struct {
	schedule Schedule
	dir      Directory
}

func NewService(schedule Schedule, dir Directory) *Service {
	return &Service{schedule: schedule, dir: dir}
}

// Agenda is one projection plus the reference lists a booking form needs.
type Agenda struct {
	View       View               `json:"view"`
	Date       string             `json:"date"`
	Slots      []string           `json:"slots"`
	Therapists []clinic.Therapist `json:"therapists"`
	Rooms      []clinic.Room      `json:"rooms"`
	Treatments []clinic.Treatment `json:"treatments"`
	Clients    []clinic.Client    `json:"clients"`
	Daily      *DailyGrid         `json:"daily,omitempty"`
	Columns    *ColumnView        `json:"columns,omitempty"`
	Weekly     *WeeklyGrid        `json:"weekly,omitempty"`
}

// Agenda builds view for date (YYYY-MM-DD, today when empty).
func (s *Service) Agenda(ctx context.Context, view View, date string) (*Agenda, error) {
	loc := s.schedule.Location()

	day := s.schedule.Now()
	if date != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = parsed
	}
	y, m, d := day.In(loc).Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	view = ParseView(string(view))

	out, err := s.references(ctx)
	if err != nil {
		return nil, err
	}
	out.View = view
	out.Date = day.Format(time.DateOnly)
	out.Slots = TimeSlots()

	from, to := day, day.AddDate(0, 0, 1)
	if view == ViewWeekly {
		from = WeekStart(day, loc)
		to = from.AddDate(0, 0, 7)
	}

	appts, err := s.schedule.Between(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	blocks, err := s.schedule.BlocksBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	events := Events(appts, blocks)

	if view == ViewWeekly {
		out.Weekly = BuildWeekly(day, loc, events)
		return out, nil
	}

	windows, err := s.schedule.AvailabilityBetween(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if view == ViewColumns {
		out.Columns = BuildColumns(day, loc, out.Therapists, windows, events)
	} else {
		out.Daily = BuildDaily(day, loc, out.Therapists, windows, events)
	}
	return out, nil
}

func (s *Service) references(ctx context.Context) (*Agenda, error) {
	therapists, err := s.dir.ListTherapists(ctx)
	if err != nil {
		return nil, fmt.Errorf("load therapists: %w", err)
	}
	rooms, err := s.dir.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	treatments, err := s.dir.ListTreatments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load treatments: %w", err)
	}
	clients, err := s.dir.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	return &Agenda{
		Therapists: nonNil(therapists),
		Rooms:      nonNil(rooms),
		Treatments: nonNil(treatments),
		Clients:    nonNil(clients),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
