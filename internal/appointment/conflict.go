package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOutsideAvailability = errors.New("therapist is not available at that time")
	ErrScheduleBlocked     = errors.New("therapist schedule is blocked at that time")
	ErrTherapistBusy       = errors.New("therapist already has an appointment at that time")
	ErrRoomBusy            = errors.New("room is already booked at that time")
)

// BlockedError names the schedule block a booking collides with.
type BlockedError struct {
	Title string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("therapist schedule is blocked at that time: %s", e.Title)
}

func (e *BlockedError) Unwrap() error { return ErrScheduleBlocked }

// RoomBusyError names the room a booking collides in.
type RoomBusyError struct {
	Room string
}

func (e *RoomBusyError) Error() string {
	return fmt.Sprintf("room %s is already booked at that time", e.Room)
}

func (e *RoomBusyError) Unwrap() error { return ErrRoomBusy }

const WarningClientOverlap = "client_overlap"

// Warning is a condition worth telling the receptionist about that does not
// stop the booking.
type Warning struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	With    uuid.UUID `json:"appointment_id"`
}

// Candidate is the slot a booking wants to occupy.
type Candidate struct {
	Interval
	TherapistID uuid.UUID
	RoomID      uuid.UUID
	ClientID    uuid.UUID
	RoomName    string
}

// Occupancy is what already sits around a candidate: the therapist's
// availability windows and blocks, plus appointments that may share its
// therapist, room or client.
type Occupancy struct {
	Windows      []Availability
	Blocks       []ScheduleBlock
	Appointments []Appointment
}

// CheckBooking returns the first rule the candidate breaks, in order:
// availability, blocks, therapist, room. Appointment exclude is ignored so
// an appointment can be moved over its own slot. Overlaps with the same
// client's other appointments come back as warnings.
func CheckBooking(c Candidate, occ Occupancy, loc *time.Location, exclude uuid.UUID) ([]Warning, error) {
	day := c.Start.In(loc)
	y, m, d := day.Date()

	available := false
	for _, w := range occ.Windows {
		if w.TherapistID != c.TherapistID {
			continue
		}
		wy, wm, wd := w.Date.Date()
		if wy != y || wm != m || wd != d {
			continue
		}
		if w.Window(loc).Contains(c.Interval) {
			available = true
			break
		}
	}
	if !available {
		return nil, ErrOutsideAvailability
	}

	for _, b := range occ.Blocks {
		if b.TherapistID == c.TherapistID && Overlaps(b.Interval(), c.Interval) {
			return nil, &BlockedError{Title: b.Title}
		}
	}

	others := make([]Appointment, 0, len(occ.Appointments))
	for _, a := range occ.Appointments {
		if a.ID == exclude || !a.Active() || !Overlaps(a.Interval(), c.Interval) {
			continue
		}
		others = append(others, a)
	}

	for _, a := range others {
		if a.TherapistID == c.TherapistID {
			return nil, ErrTherapistBusy
		}
	}
	for _, a := range others {
		if a.RoomID == c.RoomID {
			return nil, &RoomBusyError{Room: c.RoomName}
		}
	}

	var warnings []Warning
	for _, a := range others {
		if a.ClientID == c.ClientID {
			warnings = append(warnings, Warning{
				Code:    WarningClientOverlap,
				Message: "client already has another appointment overlapping this time",
				With:    a.ID,
			})
		}
	}
	return warnings, nil
}
