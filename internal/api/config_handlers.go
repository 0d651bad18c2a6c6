package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

func listHandler[T any](list func(ctx context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, r, http.StatusOK, items)
	}
}

func deleteHandler(del func(ctx context.Context, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if err := del(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listTherapistsHandler(svc ClinicService) http.HandlerFunc {
	return listHandler(svc.ListTherapists)
}

func createTherapistHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TherapistRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		t, err := svc.CreateTherapist(r.Context(), clinic.TherapistInput{Name: req.Name, Specialty: req.Specialty})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, t)
	}
}

func deleteTherapistHandler(svc ClinicService) http.HandlerFunc {
	return deleteHandler(svc.DeleteTherapist)
}

func therapistScheduleHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		sched, err := svc.TherapistSchedule(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, sched)
	}
}

func addAvailabilityHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var req WindowRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, err := req.toInput(id)
		if err != nil {
			handleError(w, r, err)
			return
		}

		a, err := svc.AddAvailability(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, a)
	}
}

func addBlockHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var req WindowRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, err := req.toInput(id)
		if err != nil {
			handleError(w, r, err)
			return
		}

		b, err := svc.AddBlock(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, b)
	}
}

func deleteAvailabilityHandler(svc AppointmentService) http.HandlerFunc {
	return deleteHandler(svc.DeleteAvailability)
}

func deleteBlockHandler(svc AppointmentService) http.HandlerFunc {
	return deleteHandler(svc.DeleteBlock)
}

func listRoomsHandler(svc ClinicService) http.HandlerFunc {
	return listHandler(svc.ListRooms)
}

func createRoomHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoomRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		room, err := svc.CreateRoom(r.Context(), clinic.RoomInput{Name: req.Name, Description: req.Description})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, room)
	}
}

func deleteRoomHandler(svc ClinicService) http.HandlerFunc {
	return deleteHandler(svc.DeleteRoom)
}

func listTreatmentsHandler(svc ClinicService) http.HandlerFunc {
	return listHandler(svc.ListTreatments)
}

func createTreatmentHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TreatmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		t, err := svc.CreateTreatment(r.Context(), clinic.TreatmentInput{
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, t)
	}
}

func deleteTreatmentHandler(svc ClinicService) http.HandlerFunc {
	return deleteHandler(svc.DeleteTreatment)
}

func listUsersHandler(svc ClinicService) http.HandlerFunc {
	return listHandler(svc.ListReceptionists)
}

func createUserHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UserRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		u, err := svc.CreateReceptionist(r.Context(), clinic.ReceptionistInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			IsAdmin:  req.IsAdmin,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, u)
	}
}

func deleteUserHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		actor, _ := auth.FromContext(r.Context())
		if err := svc.DeleteReceptionist(r.Context(), actor.ID, id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func changePasswordHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var req PasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.ChangePassword(r.Context(), id, req.Password); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
