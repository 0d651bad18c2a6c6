package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/clinic"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var ErrInvalidTime = errors.New("time of day must be HH:MM")

// TimeOfDay is a wall-clock time as minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places the time of day on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether p lies entirely inside w.
func (w Interval) Contains(p Interval) bool {
	return !p.Start.Before(w.Start) && !p.End.After(w.End)
}

type Appointment struct {
	ID          uuid.UUID  `json:"id"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Status      Status     `json:"status"`
	ClientID    uuid.UUID  `json:"client_id"`
	TherapistID uuid.UUID  `json:"therapist_id"`
	RoomID      uuid.UUID  `json:"room_id"`
	TreatmentID uuid.UUID  `json:"treatment_id"`
	BookedBy    *uuid.UUID `json:"booked_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartsAt, End: a.EndsAt}
}

// Active appointments occupy their therapist and room.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

type ScheduleBlock struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (b ScheduleBlock) Interval() Interval {
	return Interval{Start: b.StartsAt, End: b.EndsAt}
}

// Availability is a window of working time for one therapist on one
// calendar date. Date carries only the year, month and day.
type Availability struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	Date        time.Time `json:"date"`
	Start       TimeOfDay `json:"start_time"`
	End         TimeOfDay `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a Availability) Window(loc *time.Location) Interval {
	return Interval{Start: a.Start.On(a.Date, loc), End: a.End.On(a.Date, loc)}
}

// AppointmentDetail is an appointment with its references resolved.
type AppointmentDetail struct {
	Appointment
	Client           *clinic.Client    `json:"client,omitempty"`
	Therapist        *clinic.Therapist `json:"therapist,omitempty"`
	Room             *clinic.Room      `json:"room,omitempty"`
	Treatment        *clinic.Treatment `json:"treatment,omitempty"`
	BookedByUsername *string           `json:"booked_by_username,omitempty"`
}

// CalendarDate strips t down to its year, month and day, as UTC midnight.
// Convert t to the clinic location first.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
