package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/agenda"
	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/report"
)

type AuthService interface {
	Authenticator
	Login(ctx context.Context, username, password string) (*auth.Login, error)
	Logout(ctx context.Context, id auth.Identity) error
}

type AppointmentService interface {
	Book(ctx context.Context, bookedBy *uuid.UUID, req appointment.BookingRequest) (*appointment.Booking, error)
	Reschedule(ctx context.Context, id uuid.UUID, req appointment.BookingRequest) (*appointment.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ChangeStatus(ctx context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	Dashboard(ctx context.Context) (*appointment.Dashboard, error)
	ClientHistory(ctx context.Context, clientID uuid.UUID) (*appointment.ClientHistory, error)
	TherapistSchedule(ctx context.Context, therapistID uuid.UUID) (*appointment.TherapistSchedule, error)
	AddAvailability(ctx context.Context, in appointment.WindowInput) (*appointment.Availability, error)
	AddBlock(ctx context.Context, in appointment.WindowInput) (*appointment.ScheduleBlock, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	Location() *time.Location
}

type AgendaService interface {
	Agenda(ctx context.Context, view agenda.View, date string) (*agenda.Agenda, error)
}

type ClinicService interface {
	SearchClients(ctx context.Context, q clinic.ClientQuery) (*clinic.ClientPage, error)
	CreateClient(ctx context.Context, in clinic.ClientInput) (*clinic.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, in clinic.ClientInput) (*clinic.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error

	CreateTherapist(ctx context.Context, in clinic.TherapistInput) (*clinic.Therapist, error)
	ListTherapists(ctx context.Context) ([]clinic.Therapist, error)
	DeleteTherapist(ctx context.Context, id uuid.UUID) error

	CreateRoom(ctx context.Context, in clinic.RoomInput) (*clinic.Room, error)
	ListRooms(ctx context.Context) ([]clinic.Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	CreateTreatment(ctx context.Context, in clinic.TreatmentInput) (*clinic.Treatment, error)
	ListTreatments(ctx context.Context) ([]clinic.Treatment, error)
	DeleteTreatment(ctx context.Context, id uuid.UUID) error

	CreateReceptionist(ctx context.Context, in clinic.ReceptionistInput) (*clinic.Receptionist, error)
	ListReceptionists(ctx context.Context) ([]clinic.Receptionist, error)
	ChangePassword(ctx context.Context, id uuid.UUID, password string) error
	DeleteReceptionist(ctx context.Context, actor, id uuid.UUID) error
}

type ReportService interface {
	Rows(ctx context.Context, fromDay, toDay time.Time) ([]report.Row, error)
}

type RouterConfig struct {
	Auth         AuthService
	Appointments AppointmentService
	Agenda       AgendaService
	Clinic       ClinicService
	Reports      ReportService
	PingPostgres PingFunc
	PingRedis    PingFunc
	Log          *slog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.PingPostgres, cfg.PingRedis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/auth/login", loginHandler(cfg.Auth))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))

		r.Post("/auth/logout", logoutHandler(cfg.Auth))
		r.Get("/auth/me", meHandler())

		r.Get("/dashboard", dashboardHandler(cfg.Appointments))
		r.Get("/agenda", agendaHandler(cfg.Agenda))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", bookAppointmentHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Put("/{id}", rescheduleAppointmentHandler(cfg.Appointments))
			r.Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/status", changeStatusHandler(cfg.Appointments))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", listClientsHandler(cfg.Clinic))
			r.Post("/", createClientHandler(cfg.Clinic))
			r.Get("/{id}", clientHistoryHandler(cfg.Appointments))
			r.Put("/{id}", updateClientHandler(cfg.Clinic))
			r.Delete("/{id}", deleteClientHandler(cfg.Clinic))
		})

		r.Post("/reports", reportHandler(cfg.Reports))

		r.Route("/config", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/therapists", listTherapistsHandler(cfg.Clinic))
			r.Post("/therapists", createTherapistHandler(cfg.Clinic))
			r.Get("/therapists/{id}", therapistScheduleHandler(cfg.Appointments))
			r.Delete("/therapists/{id}", deleteTherapistHandler(cfg.Clinic))
			r.Post("/therapists/{id}/availability", addAvailabilityHandler(cfg.Appointments))
			r.Post("/therapists/{id}/blocks", addBlockHandler(cfg.Appointments))
			r.Delete("/availability/{id}", deleteAvailabilityHandler(cfg.Appointments))
			r.Delete("/blocks/{id}", deleteBlockHandler(cfg.Appointments))

			r.Get("/rooms", listRoomsHandler(cfg.Clinic))
			r.Post("/rooms", createRoomHandler(cfg.Clinic))
			r.Delete("/rooms/{id}", deleteRoomHandler(cfg.Clinic))

			r.Get("/treatments", listTreatmentsHandler(cfg.Clinic))
			r.Post("/treatments", createTreatmentHandler(cfg.Clinic))
			r.Delete("/treatments/{id}", deleteTreatmentHandler(cfg.Clinic))

			r.Get("/users", listUsersHandler(cfg.Clinic))
			r.Post("/users", createUserHandler(cfg.Clinic))
			r.Delete("/users/{id}", deleteUserHandler(cfg.Clinic))
			r.Put("/users/{id}/password", changePasswordHandler(cfg.Clinic))
		})
	})

	return r
}
