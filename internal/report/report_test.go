package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

type stubSource struct {
	appts    []appointment.AppointmentDetail
	from, to time.Time
}

func (s *stubSource) Between(_ context.Context, from, to time.Time) ([]appointment.AppointmentDetail, error) {
	s.from, s.to = from, to
	var out []appointment.AppointmentDetail
	for _, a := range s.appts {
		if !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubSource) Location() *time.Location { return time.UTC }

func detail(start time.Time, bookedBy *string) appointment.AppointmentDetail {
	return appointment.AppointmentDetail{
		Appointment: appointment.Appointment{
			ID: uuid.New(), StartsAt: start, EndsAt: start.Add(time.Hour), Status: appointment.StatusCompleted,
		},
		Client:           &clinic.Client{Name: "Lucía", Phone: "5550001"},
		Therapist:        &clinic.Therapist{Name: "Marta"},
		Room:             &clinic.Room{Name: "Gabinete 1"},
		Treatment:        &clinic.Treatment{Name: "Masaje", DurationMinutes: 60},
		BookedByUsername: bookedBy,
	}
}

func TestRows(t *testing.T) {
	ana := "ana"
	src := &stubSource{appts: []appointment.AppointmentDetail{
		detail(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), &ana),
		detail(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), nil),
		detail(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), nil),
	}}
	svc := NewService(src)

	rows, err := svc.Rows(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 2, "the end date is included through 23:59")

	assert.Equal(t, Row{
		Date: "2026-03-09", Time: "10:00", Client: "Lucía", ClientPhone: "5550001",
		Treatment: "Masaje", DurationMinutes: 60, Therapist: "Marta", Room: "Gabinete 1",
		Status: "completed", BookedBy: "ana",
	}, rows[0])
	assert.Equal(t, "System", rows[1].BookedBy)

	_, err = svc.Rows(context.Background(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoAppointments)

	_, err = svc.Rows(context.Background(), time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestWriteXLSX(t *testing.T) {
	rows := []Row{
		{Date: "2026-03-09", Time: "10:00", Client: "Lucía", Treatment: "Masaje", DurationMinutes: 60, Status: "scheduled", BookedBy: "System"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Client Phone", got[0][3])
	assert.Equal(t, "Booked By", got[0][9])
	assert.Equal(t, "Lucía", got[1][2])
	assert.Equal(t, "60", got[1][5])
}

func TestFilename(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "appointments_2026-03-01_2026-03-31.xlsx", Filename(from, to, FormatXLSX))
}
