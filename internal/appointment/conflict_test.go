package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{at(9, 0), at(10, 0)}, Interval{at(11, 0), at(12, 0)}, false},
		{"touching end to start", Interval{at(9, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"partial", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 30), at(10, 30)}, true},
		{"contained", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(10, 30)}, true},
		{"identical", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a))
		})
	}
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, ErrInvalidTime)

	var decoded TimeOfDay
	require.NoError(t, decoded.UnmarshalJSON([]byte(`"18:15"`)))
	assert.Equal(t, NewTimeOfDay(18, 15), decoded)

	b, err := decoded.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"18:15"`, string(b))
}

type scenario struct {
	therapist, room, client uuid.UUID
	occ                     Occupancy
}

func newScenario() scenario {
	s := scenario{therapist: uuid.New(), room: uuid.New(), client: uuid.New()}
	s.occ.Windows = []Availability{{
		ID:          uuid.New(),
		TherapistID: s.therapist,
		Date:        day,
		Start:       NewTimeOfDay(9, 0),
		End:         NewTimeOfDay(17, 0),
	}}
	return s
}

func (s scenario) candidate(start time.Time, minutes int) Candidate {
	return Candidate{
		Interval:    Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)},
		TherapistID: s.therapist,
		RoomID:      s.room,
		ClientID:    s.client,
		RoomName:    "Gabinete 1",
	}
}

func TestCheckBooking_Availability(t *testing.T) {
	s := newScenario()

	_, err := CheckBooking(s.candidate(at(9, 0), 60), s.occ, time.UTC, uuid.Nil)
	require.NoError(t, err)

	_, err = CheckBooking(s.candidate(at(16, 0), 60), s.occ, time.UTC, uuid.Nil)
	require.NoError(t, err, "ending exactly at the window end fits")

	_, err = CheckBooking(s.candidate(at(16, 30), 60), s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrOutsideAvailability)

	_, err = CheckBooking(s.candidate(at(8, 30), 60), s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrOutsideAvailability)

	next := s.candidate(at(9, 0).AddDate(0, 0, 1), 60)
	_, err = CheckBooking(next, s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrOutsideAvailability, "windows only apply to their own date")

	other := s.candidate(at(10, 0), 60)
	other.TherapistID = uuid.New()
	_, err = CheckBooking(other, s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrOutsideAvailability)
}

func TestCheckBooking_AvailabilityInClinicZone(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	s := newScenario()

	start := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	_, err := CheckBooking(s.candidate(start, 60), s.occ, loc, uuid.Nil)
	require.NoError(t, err)

	// 09:00 UTC is 03:00 in the clinic.
	_, err = CheckBooking(s.candidate(at(9, 0), 60), s.occ, loc, uuid.Nil)
	assert.ErrorIs(t, err, ErrOutsideAvailability)
}

func TestCheckBooking_Block(t *testing.T) {
	s := newScenario()
	s.occ.Blocks = []ScheduleBlock{{
		ID: uuid.New(), TherapistID: s.therapist, Title: "Comida",
		StartsAt: at(13, 0), EndsAt: at(14, 0),
	}}

	_, err := CheckBooking(s.candidate(at(12, 30), 60), s.occ, time.UTC, uuid.Nil)
	require.ErrorIs(t, err, ErrScheduleBlocked)

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "Comida", blocked.Title)
	assert.Contains(t, err.Error(), "Comida")

	_, err = CheckBooking(s.candidate(at(12, 0), 60), s.occ, time.UTC, uuid.Nil)
	assert.NoError(t, err, "ending when the block starts is fine")
}

func TestCheckBooking_TherapistAndRoom(t *testing.T) {
	s := newScenario()
	existing := Appointment{
		ID: uuid.New(), StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusScheduled,
		TherapistID: s.therapist, RoomID: uuid.New(), ClientID: uuid.New(),
	}
	s.occ.Appointments = []Appointment{existing}

	_, err := CheckBooking(s.candidate(at(10, 30), 60), s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrTherapistBusy)

	_, err = CheckBooking(s.candidate(at(10, 30), 60), s.occ, time.UTC, existing.ID)
	assert.NoError(t, err, "an appointment never conflicts with itself")

	s.occ.Appointments[0].Status = StatusCancelled
	_, err = CheckBooking(s.candidate(at(10, 30), 60), s.occ, time.UTC, uuid.Nil)
	assert.NoError(t, err, "cancelled appointments free their slot")

	s.occ.Appointments = []Appointment{{
		ID: uuid.New(), StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusScheduled,
		TherapistID: uuid.New(), RoomID: s.room, ClientID: uuid.New(),
	}}
	_, err = CheckBooking(s.candidate(at(10, 30), 60), s.occ, time.UTC, uuid.Nil)
	require.ErrorIs(t, err, ErrRoomBusy)
	assert.Contains(t, err.Error(), "Gabinete 1")
}

func TestCheckBooking_Order(t *testing.T) {
	s := newScenario()
	s.occ.Blocks = []ScheduleBlock{{TherapistID: s.therapist, Title: "Curso", StartsAt: at(10, 0), EndsAt: at(11, 0)}}
	s.occ.Appointments = []Appointment{
		{ID: uuid.New(), StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusScheduled, TherapistID: uuid.New(), RoomID: s.room},
		{ID: uuid.New(), StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusScheduled, TherapistID: s.therapist, RoomID: uuid.New()},
	}

	_, err := CheckBooking(s.candidate(at(10, 0), 30), s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrScheduleBlocked)

	s.occ.Blocks = nil
	_, err = CheckBooking(s.candidate(at(10, 0), 30), s.occ, time.UTC, uuid.Nil)
	assert.ErrorIs(t, err, ErrTherapistBusy, "therapist conflicts are reported before room conflicts")
}

func TestCheckBooking_ClientOverlapWarns(t *testing.T) {
	s := newScenario()
	other := Appointment{
		ID: uuid.New(), StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusScheduled,
		TherapistID: uuid.New(), RoomID: uuid.New(), ClientID: s.client,
	}
	s.occ.Appointments = []Appointment{other}

	warnings, err := CheckBooking(s.candidate(at(10, 0), 60), s.occ, time.UTC, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningClientOverlap, warnings[0].Code)
	assert.Equal(t, other.ID, warnings[0].With)
}
