package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/spa-agenda/internal/appointment"
)

var (
	ErrNoAppointments = errors.New("no appointments in the selected range")
	ErrInvalidRange   = errors.New("start date must not be after end date")
	ErrInvalidFormat  = errors.New("format must be xlsx or json")
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXLSX, FormatJSON:
		return Format(s), nil
	case "":
		return FormatXLSX, nil
	}
	return "", ErrInvalidFormat
}

const systemBooker = "System"

type Row struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	Client          string `json:"client"`
	ClientPhone     string `json:"client_phone"`
	Treatment       string `json:"treatment"`
	DurationMinutes int    `json:"duration_minutes"`
	Therapist       string `json:"therapist"`
	Room            string `json:"room"`
	Status          string `json:"status"`
	BookedBy        string `json:"booked_by"`
}

type Source interface {
	Between(ctx context.Context, from, to time.Time) ([]appointment.AppointmentDetail, error)
	Location() *time.Location
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Rows lists appointments starting on any day from fromDay to toDay
// inclusive, in the clinic's zone, ordered by start.
func (s *Service) Rows(ctx context.Context, fromDay, toDay time.Time) ([]Row, error) {
	loc := s.source.Location()
	from := midnight(fromDay, loc)
	to := midnight(toDay, loc)
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	appts, err := s.source.Between(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if len(appts) == 0 {
		return nil, ErrNoAppointments
	}

	rows := make([]Row, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, toRow(a, loc))
	}
	return rows, nil
}

func midnight(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func toRow(a appointment.AppointmentDetail, loc *time.Location) Row {
	start := a.StartsAt.In(loc)
	r := Row{
		Date:     start.Format(time.DateOnly),
		Time:     start.Format("15:04"),
		Status:   string(a.Status),
		BookedBy: systemBooker,
	}
	if a.Client != nil {
		r.Client, r.ClientPhone = a.Client.Name, a.Client.Phone
	}
	if a.Treatment != nil {
		r.Treatment, r.DurationMinutes = a.Treatment.Name, a.Treatment.DurationMinutes
	}
	if a.Therapist != nil {
		r.Therapist = a.Therapist.Name
	}
	if a.Room != nil {
		r.Room = a.Room.Name
	}
	if a.BookedByUsername != nil {
		r.BookedBy = *a.BookedByUsername
	}
	return r
}

// Filename is the suggested download name for a report of the range.
func Filename(fromDay, toDay time.Time, f Format) string {
	return fmt.Sprintf("appointments_%s_%s.%s", fromDay.Format(time.DateOnly), toDay.Format(time.DateOnly), f)
}
