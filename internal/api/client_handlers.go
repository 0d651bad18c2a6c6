package api

import (
	"net/http"
	"strconv"

	"github.com/hackgods/spa-agenda/internal/clinic"
)

func listClientsHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("per_page"))

		result, err := svc.SearchClients(r.Context(), clinic.ClientQuery{
			Q:       q.Get("q"),
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, result)
	}
}

func createClientHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClientRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, err := req.toInput()
		if err != nil {
			handleError(w, r, err)
			return
		}

		c, err := svc.CreateClient(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, c)
	}
}

func clientHistoryHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		h, err := svc.ClientHistory(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, h)
	}
}

func updateClientHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var req ClientRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, err := req.toInput()
		if err != nil {
			handleError(w, r, err)
			return
		}

		c, err := svc.UpdateClient(r.Context(), id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, c)
	}
}

func deleteClientHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteClient(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
