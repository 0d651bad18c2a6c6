package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/agenda"
	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/logger"
	"github.com/hackgods/spa-agenda/internal/report"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, details string) {
	writeJSON(w, r, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request_body", errInvalidBody.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_id", errInvalidID.Error())
		return uuid.Nil, false
	}
	return id, true
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{errInvalidID, http.StatusBadRequest, "invalid_id"},
	{errInvalidDate, http.StatusBadRequest, "invalid_date"},
	{errInvalidTime, http.StatusBadRequest, "invalid_time"},
	{appointment.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{clinic.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{appointment.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{appointment.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
	{appointment.ErrInvalidTime, http.StatusBadRequest, "invalid_time"},
	{clinic.ErrInvalidTier, http.StatusBadRequest, "invalid_membership_tier"},
	{clinic.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{clinic.ErrInvalidDuration, http.StatusBadRequest, "invalid_duration"},
	{clinic.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{agenda.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{report.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{report.ErrInvalidFormat, http.StatusBadRequest, "invalid_format"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},

	{appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{appointment.ErrAvailabilityNotFound, http.StatusNotFound, "availability_not_found"},
	{appointment.ErrBlockNotFound, http.StatusNotFound, "block_not_found"},
	{clinic.ErrClientNotFound, http.StatusNotFound, "client_not_found"},
	{clinic.ErrTherapistNotFound, http.StatusNotFound, "therapist_not_found"},
	{clinic.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{clinic.ErrTreatmentNotFound, http.StatusNotFound, "treatment_not_found"},
	{clinic.ErrReceptionistNotFound, http.StatusNotFound, "user_not_found"},
	{report.ErrNoAppointments, http.StatusNotFound, "no_appointments"},

	{appointment.ErrOutsideAvailability, http.StatusConflict, "outside_availability"},
	{appointment.ErrScheduleBlocked, http.StatusConflict, "schedule_blocked"},
	{appointment.ErrTherapistBusy, http.StatusConflict, "therapist_busy"},
	{appointment.ErrRoomBusy, http.StatusConflict, "room_busy"},
	{appointment.ErrBookingInProgress, http.StatusConflict, "booking_in_progress"},
	{clinic.ErrDuplicatePhone, http.StatusConflict, "duplicate_phone"},
	{clinic.ErrDuplicateRoomName, http.StatusConflict, "duplicate_room_name"},
	{clinic.ErrDuplicateUsername, http.StatusConflict, "duplicate_username"},
	{clinic.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{clinic.ErrClientHasAppointments, http.StatusConflict, "client_has_appointments"},
	{clinic.ErrTherapistInUse, http.StatusConflict, "therapist_in_use"},
	{clinic.ErrRoomInUse, http.StatusConflict, "room_in_use"},
	{clinic.ErrTreatmentInUse, http.StatusConflict, "treatment_in_use"},
	{clinic.ErrSelfDelete, http.StatusConflict, "self_delete"},
}

// handleError writes the response for err. Unknown errors are logged and
// answered with a bare 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeError(w, r, m.status, m.code, err.Error())
			return
		}
	}

	loggerFrom(r.Context()).Error("request failed", logger.Err(err))
	writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
}
