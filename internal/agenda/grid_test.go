package agenda

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

// Wednesday.
var day = time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestTimeSlots(t *testing.T) {
	slots := TimeSlots()
	require.Len(t, slots, 32)
	assert.Equal(t, "07:00", slots[0])
	assert.Equal(t, "07:30", slots[1])
	assert.Equal(t, "22:30", slots[31])
}

func TestPlacement(t *testing.T) {
	tests := []struct {
		name       string
		start      time.Time
		minutes    int
		slot, span int
		insideGrid bool
	}{
		{"on the hour", at(10, 0), 60, 6, 2, true},
		{"mid slot start floors", at(10, 15), 45, 6, 2, true},
		{"short event takes one row", at(10, 0), 15, 6, 1, true},
		{"spill into partial slot", at(10, 0), 75, 6, 3, true},
		{"clipped at the end of the grid", at(22, 0), 120, 30, 2, true},
		{"before opening", at(6, 30), 60, 0, 0, false},
		{"after closing", at(23, 0), 30, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{StartsAt: tt.start, EndsAt: tt.start.Add(time.Duration(tt.minutes) * time.Minute)}
			slot, span, ok := placement(e, time.UTC)
			assert.Equal(t, tt.insideGrid, ok)
			if ok {
				assert.Equal(t, tt.slot, slot)
				assert.Equal(t, tt.span, span)
			}
		})
	}
}

func TestEvents_SkipsCancelledAndSorts(t *testing.T) {
	appts := []appointment.AppointmentDetail{
		{Appointment: appointment.Appointment{ID: uuid.New(), StartsAt: at(12, 0), EndsAt: at(13, 0), Status: appointment.StatusScheduled}},
		{Appointment: appointment.Appointment{ID: uuid.New(), StartsAt: at(9, 0), EndsAt: at(10, 0), Status: appointment.StatusCancelled}},
	}
	blocks := []appointment.ScheduleBlock{{ID: uuid.New(), Title: "Comida", StartsAt: at(11, 0), EndsAt: at(12, 0)}}

	events := Events(appts, blocks)
	require.Len(t, events, 2)
	assert.Equal(t, CellBlock, events[0].Kind)
	assert.Equal(t, "Comida", events[0].Title)
	assert.Equal(t, CellAppointment, events[1].Kind)
}

func TestBuildDaily(t *testing.T) {
	ana := clinic.Therapist{ID: uuid.New(), Name: "Ana"}
	bea := clinic.Therapist{ID: uuid.New(), Name: "Bea"}
	off := clinic.Therapist{ID: uuid.New(), Name: "Carla"}

	windows := []appointment.Availability{
		{TherapistID: bea.ID, Date: day, Start: appointment.NewTimeOfDay(9, 0), End: appointment.NewTimeOfDay(13, 0)},
		{TherapistID: ana.ID, Date: day, Start: appointment.NewTimeOfDay(10, 0), End: appointment.NewTimeOfDay(12, 0)},
		{TherapistID: ana.ID, Date: day, Start: appointment.NewTimeOfDay(16, 0), End: appointment.NewTimeOfDay(18, 0)},
		{TherapistID: off.ID, Date: day.AddDate(0, 0, 1), Start: appointment.NewTimeOfDay(9, 0), End: appointment.NewTimeOfDay(18, 0)},
	}
	events := []Event{
		{Kind: CellAppointment, ID: uuid.New(), TherapistID: ana.ID, StartsAt: at(10, 0), EndsAt: at(11, 30)},
		{Kind: CellBlock, ID: uuid.New(), TherapistID: bea.ID, Title: "Curso", StartsAt: at(12, 0), EndsAt: at(13, 0)},
		{Kind: CellAppointment, ID: uuid.New(), TherapistID: off.ID, StartsAt: at(10, 0), EndsAt: at(11, 0)},
	}

	g := BuildDaily(day, time.UTC, []clinic.Therapist{bea, off, ana}, windows, events)

	assert.Equal(t, "2026-03-11", g.Date)
	require.Len(t, g.Therapists, 2, "only therapists working that day get a column")
	assert.Equal(t, "Ana", g.Therapists[0].Name)
	assert.Equal(t, "Bea", g.Therapists[1].Name)
	_, hasOff := g.Rows["10:00"][off.ID]
	assert.False(t, hasOff)

	assert.Equal(t, CellUnavailable, g.Rows["09:30"][ana.ID].Status)
	assert.Equal(t, CellAvailable, g.Rows["11:30"][ana.ID].Status)
	assert.Equal(t, CellUnavailable, g.Rows["12:00"][ana.ID].Status, "a window's end is exclusive")
	assert.Equal(t, CellAvailable, g.Rows["16:00"][ana.ID].Status)

	start := g.Rows["10:00"][ana.ID]
	assert.Equal(t, CellAppointment, start.Status)
	assert.Equal(t, 3, start.Rowspan)
	assert.True(t, start.Render)
	require.NotNil(t, start.Event)
	assert.False(t, g.Rows["10:30"][ana.ID].Render)
	assert.False(t, g.Rows["11:00"][ana.ID].Render)
	assert.True(t, g.Rows["11:30"][ana.ID].Render)

	block := g.Rows["12:00"][bea.ID]
	assert.Equal(t, CellBlock, block.Status)
	assert.Equal(t, 2, block.Rowspan)
	assert.False(t, g.Rows["12:30"][bea.ID].Render)
}

func TestBuildDaily_SharedStartSlot(t *testing.T) {
	ana := clinic.Therapist{ID: uuid.New(), Name: "Ana"}
	windows := []appointment.Availability{
		{TherapistID: ana.ID, Date: day, Start: appointment.NewTimeOfDay(9, 0), End: appointment.NewTimeOfDay(13, 0)},
	}
	first := Event{Kind: CellAppointment, ID: uuid.New(), TherapistID: ana.ID, StartsAt: at(10, 0), EndsAt: at(10, 15)}
	second := Event{Kind: CellAppointment, ID: uuid.New(), TherapistID: ana.ID, StartsAt: at(10, 15), EndsAt: at(10, 45)}

	g := BuildDaily(day, time.UTC, []clinic.Therapist{ana}, windows, []Event{first, second})

	cell := g.Rows["10:00"][ana.ID]
	require.NotNil(t, cell.Event)
	assert.Equal(t, first.ID, cell.Event.ID, "the earlier event keeps the cell")
	require.Len(t, cell.Overflow, 1)
	assert.Equal(t, second.ID, cell.Overflow[0].ID)
	assert.Equal(t, 2, cell.Rowspan, "the cell grows to cover the longer event")
	assert.False(t, g.Rows["10:30"][ana.ID].Render)
	assert.True(t, g.Rows["11:00"][ana.ID].Render)
}

func TestBuildColumns(t *testing.T) {
	ana := clinic.Therapist{ID: uuid.New(), Name: "Ana"}
	bea := clinic.Therapist{ID: uuid.New(), Name: "Bea"}
	windows := []appointment.Availability{
		{TherapistID: bea.ID, Date: day, Start: appointment.NewTimeOfDay(9, 0), End: appointment.NewTimeOfDay(13, 0)},
	}
	events := []Event{{Kind: CellAppointment, TherapistID: ana.ID, StartsAt: at(9, 0), EndsAt: at(10, 0)}}

	v := BuildColumns(day, time.UTC, []clinic.Therapist{ana, bea}, windows, events)
	assert.Len(t, v.Therapists, 2)
	assert.Equal(t, []uuid.UUID{bea.ID}, v.Available)
	assert.Len(t, v.Events, 1)
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, "2026-03-09", WeekStart(day, time.UTC).Format(time.DateOnly))
	sunday := time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", WeekStart(sunday, time.UTC).Format(time.DateOnly))
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", WeekStart(monday, time.UTC).Format(time.DateOnly))
}

func TestBuildWeekly(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Kind: CellAppointment, ID: uuid.New(), StartsAt: monday.Add(9 * time.Hour), EndsAt: monday.Add(10 * time.Hour)},
		{Kind: CellAppointment, ID: uuid.New(), StartsAt: monday.Add(9 * time.Hour), EndsAt: monday.Add(10*time.Hour + 30*time.Minute)},
		{Kind: CellBlock, ID: uuid.New(), StartsAt: at(15, 0), EndsAt: at(15, 30)},
		{Kind: CellBlock, ID: uuid.New(), StartsAt: monday.AddDate(0, 0, 7).Add(9 * time.Hour), EndsAt: monday.AddDate(0, 0, 7).Add(10 * time.Hour)},
	}

	g := BuildWeekly(day, time.UTC, events)
	assert.Equal(t, "2026-03-09", g.WeekStart)
	require.Len(t, g.Days, 7)
	assert.Equal(t, "2026-03-15", g.Days[6])

	cell := g.Rows["09:00"][0]
	assert.Len(t, cell.Events, 2)
	assert.Equal(t, 3, cell.Rowspan, "rowspan is the longest event starting there")
	assert.False(t, g.Rows["09:30"][0].Render)
	assert.False(t, g.Rows["10:00"][0].Render)
	assert.True(t, g.Rows["10:30"][0].Render)

	wed := g.Rows["15:00"][2]
	require.Len(t, wed.Events, 1)
	assert.Equal(t, CellBlock, wed.Events[0].Kind)

	for _, label := range g.Slots {
		for _, c := range g.Rows[label] {
			for _, e := range c.Events {
				assert.NotEqual(t, events[3].ID, e.ID, "next week's events are not placed")
			}
		}
	}
}
