package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/spa-agenda/internal/agenda"
	"github.com/hackgods/spa-agenda/internal/api"
	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/appointment/appointmenttest"
	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/clinic/clinictest"
	"github.com/hackgods/spa-agenda/internal/config"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
	"github.com/hackgods/spa-agenda/internal/report"
)

var now = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

var (
	_ api.AuthService        = (*auth.Service)(nil)
	_ api.AppointmentService = (*appointment.Service)(nil)
	_ api.AgendaService      = (*agenda.Service)(nil)
	_ api.ClinicService      = (*clinic.Service)(nil)
	_ api.ReportService      = (*report.Service)(nil)
)

type memSessions struct {
	mu   sync.Mutex
	byID map[string]uuid.UUID
}

func (m *memSessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.byID[id] = userID
	return id, nil
}

func (m *memSessions) Lookup(_ context.Context, id string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.byID[id]
	if !ok {
		return uuid.Nil, redisclient.ErrSessionNotFound
	}
	return userID, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type testServer struct {
	handler http.Handler
	seed    appointmenttest.Seed
	clinic  *clinic.Service
}

func newTestServer(t *testing.T, pingPG, pingRedis api.PingFunc) *testServer {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := clinictest.New()
	clinicSvc := clinic.NewService(dir, auth.HashPassword, log)
	apptSvc := appointment.NewService(appointmenttest.New(dir), dir, appointmenttest.NewLocker(), config.Config{Timezone: "UTC"}, log).
		WithClock(func() time.Time { return now })
	authSvc := auth.NewService(clinicSvc, &memSessions{byID: map[string]uuid.UUID{}}, auth.NewTokenIssuer("test-secret", time.Hour), log)

	_, err := clinicSvc.CreateReceptionist(ctx, clinic.ReceptionistInput{Username: "admin", Password: "admin-pw", IsAdmin: true})
	require.NoError(t, err)
	_, err = clinicSvc.CreateReceptionist(ctx, clinic.ReceptionistInput{Username: "desk", Password: "desk-pw"})
	require.NoError(t, err)

	return &testServer{
		handler: api.NewRouter(api.RouterConfig{
			Auth:         authSvc,
			Appointments: apptSvc,
			Agenda:       agenda.NewService(apptSvc, clinicSvc),
			Clinic:       clinicSvc,
			Reports:      report.NewService(apptSvc),
			PingPostgres: pingPG,
			PingRedis:    pingRedis,
			Log:          log,
			Env:          "test",
			Version:      "v-test",
		}),
		seed:   appointmenttest.NewSeed(ctx, dir),
		clinic: clinicSvc,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", api.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login auth.Login
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pg, redis  api.PingFunc
		wantCode   int
		wantStatus string
	}{
		{"all up", ok, ok, http.StatusOK, "ok"},
		{"redis down", ok, down, http.StatusOK, "degraded"},
		{"postgres down", down, ok, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.pg, tt.redis)

			rec := s.do(t, http.MethodGet, "/health/ready", "", nil)
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp api.ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "v-test", resp.Version)
		})
	}

	s := newTestServer(t, ok, ok)
	rec := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, ok, ok)

	rec := s.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/login", "", api.LoginRequest{Username: "desk", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	token := s.login(t, "desk", "desk-pw")

	rec = s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "desk", me.Username)
	assert.False(t, me.IsAdmin)

	rec = s.do(t, http.MethodGet, "/config/rooms", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/dashboard", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t, ok, ok)
	admin := s.login(t, "admin", "admin-pw")
	desk := s.login(t, "desk", "desk-pw")
	therapist := s.seed.Therapist.ID.String()

	rec := s.do(t, http.MethodPost, "/config/therapists/"+therapist+"/availability", admin, api.WindowRequest{
		Date: "2026-03-09", Start: "09:00", End: "18:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	booking := api.AppointmentRequest{
		ClientID:    s.seed.Client.ID.String(),
		TherapistID: therapist,
		RoomID:      s.seed.Room.ID.String(),
		TreatmentID: s.seed.Treatment.ID.String(),
		Date:        "2026-03-09",
		Time:        "10:00",
	}

	rec = s.do(t, http.MethodPost, "/appointments", desk, booking)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created appointment.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Appointment)
	assert.Equal(t, time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC), created.Appointment.EndsAt.UTC())
	require.NotNil(t, created.Appointment.BookedBy)

	booking.Time = "10:30"
	rec = s.do(t, http.MethodPost, "/appointments", desk, booking)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "therapist_busy", errorCode(t, rec))

	booking.Time = "19:00"
	rec = s.do(t, http.MethodPost, "/appointments", desk, booking)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "outside_availability", errorCode(t, rec))

	booking.Time = "ten"
	rec = s.do(t, http.MethodPost, "/appointments", desk, booking)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_time", errorCode(t, rec))

	id := created.Appointment.ID.String()
	rec = s.do(t, http.MethodPost, "/appointments/"+id+"/status", desk, api.StatusRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/appointments/"+id+"/status", desk, api.StatusRequest{Status: "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/clients/"+s.seed.Client.ID.String(), desk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history appointment.ClientHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 1, history.CompletedCount)
	assert.InDelta(t, 50.0, history.TotalSpent, 0.001)

	rec = s.do(t, http.MethodGet, "/dashboard", desk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash appointment.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, 1, dash.Total)
	assert.Equal(t, 1, dash.Completed)

	rec = s.do(t, http.MethodDelete, "/appointments/"+id, desk, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/appointments/"+id, desk, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/appointments/not-a-uuid", desk, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", errorCode(t, rec))
}

func TestAgenda(t *testing.T) {
	s := newTestServer(t, ok, ok)
	desk := s.login(t, "desk", "desk-pw")

	for _, view := range []string{"daily", "columns", "weekly"} {
		rec := s.do(t, http.MethodGet, "/agenda?view="+view+"&date=2026-03-11", desk, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var a struct {
			View  string   `json:"view"`
			Date  string   `json:"date"`
			Slots []string `json:"slots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		assert.Equal(t, view, a.View)
		assert.Len(t, a.Slots, 32)
	}

	rec := s.do(t, http.MethodGet, "/agenda?date=11-03-2026", desk, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", errorCode(t, rec))
}

func TestClients(t *testing.T) {
	s := newTestServer(t, ok, ok)
	desk := s.login(t, "desk", "desk-pw")

	rec := s.do(t, http.MethodPost, "/clients", desk, api.ClientRequest{
		Name: "Ana", Phone: "5550002", MembershipTier: "monthly", MembershipExpiresOn: "2026-12-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/clients", desk, api.ClientRequest{Name: "Otra", Phone: "5550002"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_phone", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/clients", desk, api.ClientRequest{Name: "Sin tier", Phone: "5550003", MembershipTier: "platinum"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_membership_tier", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/clients?q=ana", desk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page clinic.ClientPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Clients, 1)
	assert.Equal(t, "Ana", page.Clients[0].Name)
}

func TestConfigAdmin(t *testing.T) {
	s := newTestServer(t, ok, ok)
	admin := s.login(t, "admin", "admin-pw")

	rec := s.do(t, http.MethodPost, "/config/rooms", admin, api.RoomRequest{Name: "Gabinete 1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_room_name", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/config/treatments", admin, api.TreatmentRequest{Name: "Facial", DurationMinutes: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_duration", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/config/therapists/"+s.seed.Therapist.ID.String()+"/blocks", admin, api.WindowRequest{
		Title: "Comida", Date: "2026-03-09", Start: "14:00", End: "13:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_window", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/config/therapists/"+s.seed.Therapist.ID.String(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/config/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []clinic.Receptionist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "password")

	self, err := s.clinic.FindReceptionistByUsername(context.Background(), "admin")
	require.NoError(t, err)
	rec = s.do(t, http.MethodDelete, "/config/users/"+self.ID.String(), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "self_delete", errorCode(t, rec))
}

func TestReports(t *testing.T) {
	s := newTestServer(t, ok, ok)
	desk := s.login(t, "desk", "desk-pw")

	rec := s.do(t, http.MethodPost, "/reports", desk, api.ReportRequest{From: "2026-03-10", To: "2026-03-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_range", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/reports", desk, api.ReportRequest{From: "2026-03-01", To: "2026-03-10", Format: "pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_format", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/reports", desk, api.ReportRequest{From: "2026-03-01", To: "2026-03-10"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_appointments", errorCode(t, rec))
}
