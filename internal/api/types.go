package api

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

var (
	errInvalidBody = errors.New("could not parse JSON body")
	errInvalidID   = errors.New("id must be a valid UUID")
	errInvalidDate = errors.New("dates must be YYYY-MM-DD")
	errInvalidTime = errors.New("starts_at must be RFC 3339, or date and time must be YYYY-MM-DD and HH:MM")
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AppointmentRequest accepts the start either as starts_at or as a clinic
// local date plus time.
type AppointmentRequest struct {
	ClientID    string     `json:"client_id"`
	TherapistID string     `json:"therapist_id"`
	RoomID      string     `json:"room_id"`
	TreatmentID string     `json:"treatment_id"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	Date        string     `json:"date,omitempty"`
	Time        string     `json:"time,omitempty"`
}

// parseOptionalID treats an empty string as unset; the service reports
// missing fields.
func parseOptionalID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func (req AppointmentRequest) toBooking(loc *time.Location) (appointment.BookingRequest, error) {
	var out appointment.BookingRequest
	var err error

	if out.ClientID, err = parseOptionalID(req.ClientID); err != nil {
		return out, err
	}
	if out.TherapistID, err = parseOptionalID(req.TherapistID); err != nil {
		return out, err
	}
	if out.RoomID, err = parseOptionalID(req.RoomID); err != nil {
		return out, err
	}
	if out.TreatmentID, err = parseOptionalID(req.TreatmentID); err != nil {
		return out, err
	}

	switch {
	case req.StartsAt != nil:
		out.StartsAt = *req.StartsAt
	case req.Date != "" && req.Time != "":
		start, err := time.ParseInLocation(time.DateOnly+" 15:04", req.Date+" "+req.Time, loc)
		if err != nil {
			return out, errInvalidTime
		}
		out.StartsAt = start
	}
	return out, nil
}

type StatusRequest struct {
	Status string `json:"status"`
}

type ClientRequest struct {
	Name                string  `json:"name"`
	Phone               string  `json:"phone"`
	Email               *string `json:"email,omitempty"`
	MembershipTier      string  `json:"membership_tier"`
	MembershipExpiresOn string  `json:"membership_expires_on,omitempty"`
}

func (req ClientRequest) toInput() (clinic.ClientInput, error) {
	in := clinic.ClientInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Tier:  clinic.MembershipTier(strings.TrimSpace(req.MembershipTier)),
	}
	if req.MembershipExpiresOn != "" {
		d, err := parseDate(req.MembershipExpiresOn)
		if err != nil {
			return in, err
		}
		in.ExpiresOn = &d
	}
	return in, nil
}

type TherapistRequest struct {
	Name      string  `json:"name"`
	Specialty *string `json:"specialty,omitempty"`
}

type RoomRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type TreatmentRequest struct {
	Name            string   `json:"name"`
	DurationMinutes int      `json:"duration_minutes"`
	Price           *float64 `json:"price,omitempty"`
}

type WindowRequest struct {
	Title string `json:"title,omitempty"`
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

func (req WindowRequest) toInput(therapistID uuid.UUID) (appointment.WindowInput, error) {
	in := appointment.WindowInput{
		TherapistID: therapistID,
		Title:       req.Title,
		Start:       strings.TrimSpace(req.Start),
		End:         strings.TrimSpace(req.End),
	}
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	return in, nil
}

type UserRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
	IsAdmin  bool    `json:"is_admin"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

type ReportRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Format string `json:"format"`
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return d, nil
}
