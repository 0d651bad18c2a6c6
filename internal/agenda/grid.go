package agenda

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/clinic"
)

const (
	firstSlotHour = 7
	lastSlotHour  = 23 // exclusive
	slotMinutes   = 30
	slotCount     = (lastSlotHour - firstSlotHour) * 60 / slotMinutes
)

const (
	CellUnavailable = "unavailable"
	CellAvailable   = "available"
	CellAppointment = "appointment"
	CellBlock       = "block"
)

// TimeSlots lists the half-hour labels of the grid, 07:00 to 22:30.
func TimeSlots() []string {
	slots := make([]string, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slots = append(slots, slotTime(i).String())
	}
	return slots
}

func slotTime(i int) appointment.TimeOfDay {
	return appointment.TimeOfDay(firstSlotHour*60 + i*slotMinutes)
}

// Event is an appointment or a schedule block placed on the grid.
type Event struct {
	Kind        string                         `json:"kind"`
	ID          uuid.UUID                      `json:"id"`
	TherapistID uuid.UUID                      `json:"therapist_id"`
	Title       string                         `json:"title"`
	StartsAt    time.Time                      `json:"starts_at"`
	EndsAt      time.Time                      `json:"ends_at"`
	Appointment *appointment.AppointmentDetail `json:"appointment,omitempty"`
	Block       *appointment.ScheduleBlock     `json:"block,omitempty"`
}

// Events merges appointments and blocks ordered by start. Cancelled
// appointments are left out.
func Events(appts []appointment.AppointmentDetail, blocks []appointment.ScheduleBlock) []Event {
	events := make([]Event, 0, len(appts)+len(blocks))
	for i := range appts {
		a := &appts[i]
		if !a.Active() {
			continue
		}
		title := ""
		if a.Treatment != nil {
			title = a.Treatment.Name
		}
		if a.Client != nil {
			title = fmt.Sprintf("%s - %s", a.Client.Name, title)
		}
		events = append(events, Event{
			Kind:        CellAppointment,
			ID:          a.ID,
			TherapistID: a.TherapistID,
			Title:       title,
			StartsAt:    a.StartsAt,
			EndsAt:      a.EndsAt,
			Appointment: a,
		})
	}
	for i := range blocks {
		b := &blocks[i]
		events = append(events, Event{
			Kind:        CellBlock,
			ID:          b.ID,
			TherapistID: b.TherapistID,
			Title:       b.Title,
			StartsAt:    b.StartsAt,
			EndsAt:      b.EndsAt,
			Block:       b,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events
}

// placement returns the slot holding the event's start (floored to the half
// hour) and how many slots it spans, clipped to the grid. ok is false when
// the start falls outside the grid.
func placement(e Event, loc *time.Location) (slot, rowspan int, ok bool) {
	start := e.StartsAt.In(loc)
	minutes := start.Hour()*60 + start.Minute()
	offset := minutes - firstSlotHour*60
	if offset < 0 {
		return 0, 0, false
	}
	slot = offset / slotMinutes
	if slot >= slotCount {
		return 0, 0, false
	}

	slotStart := firstSlotHour*60 + slot*slotMinutes
	covered := minutes - slotStart + int(e.EndsAt.Sub(e.StartsAt)/time.Minute)
	rowspan = (covered + slotMinutes - 1) / slotMinutes
	if rowspan < 1 {
		rowspan = 1
	}
	if slot+rowspan > slotCount {
		rowspan = slotCount - slot
	}
	return slot, rowspan, true
}

// Cell is one slot of one therapist column. Event is the first event that
// starts in the slot; later ones starting in the same slot go to Overflow.
type Cell struct {
	Status   string  `json:"status"`
	Render   bool    `json:"render"`
	Rowspan  int     `json:"rowspan"`
	Event    *Event  `json:"event,omitempty"`
	Overflow []Event `json:"overflow,omitempty"`
}

// DailyGrid is one day laid out as time label x therapist.
type DailyGrid struct {
	Date       string                         `json:"date"`
	Slots      []string                       `json:"slots"`
	Therapists []clinic.Therapist             `json:"therapists"`
	Rows       map[string]map[uuid.UUID]*Cell `json:"rows"`
}

// BuildDaily lays out day. Only therapists with availability on day get a
// column; events of other therapists are dropped.
func BuildDaily(day time.Time, loc *time.Location, therapists []clinic.Therapist, windows []appointment.Availability, events []Event) *DailyGrid {
	date := appointment.CalendarDate(day.In(loc))

	byTherapist := map[uuid.UUID][]appointment.Availability{}
	for _, w := range windows {
		if w.Date.Equal(date) {
			byTherapist[w.TherapistID] = append(byTherapist[w.TherapistID], w)
		}
	}

	columns := make([]clinic.Therapist, 0, len(byTherapist))
	for _, t := range therapists {
		if len(byTherapist[t.ID]) > 0 {
			columns = append(columns, t)
		}
	}
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })

	g := &DailyGrid{
		Date:       date.Format(time.DateOnly),
		Slots:      TimeSlots(),
		Therapists: columns,
		Rows:       make(map[string]map[uuid.UUID]*Cell, slotCount),
	}

	for i, label := range g.Slots {
		t := slotTime(i)
		row := make(map[uuid.UUID]*Cell, len(columns))
		for _, th := range columns {
			status := CellUnavailable
			for _, w := range byTherapist[th.ID] {
				if w.Start <= t && t < w.End {
					status = CellAvailable
					break
				}
			}
			row[th.ID] = &Cell{Status: status, Render: true, Rowspan: 1}
		}
		g.Rows[label] = row
	}

	for i := range events {
		e := &events[i]
		slot, span, ok := placement(*e, loc)
		if !ok {
			continue
		}
		cell, ok := g.Rows[g.Slots[slot]][e.TherapistID]
		if !ok {
			continue
		}
		if cell.Event != nil {
			cell.Overflow = append(cell.Overflow, *e)
			if span <= cell.Rowspan {
				continue
			}
		} else {
			cell.Status = e.Kind
			cell.Event = e
		}
		cell.Rowspan = max(cell.Rowspan, span)
		for k := 1; k < span; k++ {
			g.Rows[g.Slots[slot+k]][e.TherapistID].Render = false
		}
	}

	return g
}

// ColumnView is the day's events next to every therapist, with the ids of
// those working that day.
type ColumnView struct {
	Date       string             `json:"date"`
	Slots      []string           `json:"slots"`
	Therapists []clinic.Therapist `json:"therapists"`
	Available  []uuid.UUID        `json:"available_therapist_ids"`
	Events     []Event            `json:"events"`
}

func BuildColumns(day time.Time, loc *time.Location, therapists []clinic.Therapist, windows []appointment.Availability, events []Event) *ColumnView {
	date := appointment.CalendarDate(day.In(loc))

	working := map[uuid.UUID]bool{}
	for _, w := range windows {
		if w.Date.Equal(date) {
			working[w.TherapistID] = true
		}
	}

	v := &ColumnView{
		Date:       date.Format(time.DateOnly),
		Slots:      TimeSlots(),
		Therapists: therapists,
		Available:  []uuid.UUID{},
		Events:     events,
	}
	if v.Therapists == nil {
		v.Therapists = []clinic.Therapist{}
	}
	if v.Events == nil {
		v.Events = []Event{}
	}
	for _, t := range therapists {
		if working[t.ID] {
			v.Available = append(v.Available, t.ID)
		}
	}
	return v
}

type WeekCell struct {
	Events  []Event `json:"events"`
	Rowspan int     `json:"rowspan"`
	Render  bool    `json:"render"`
}

// WeeklyGrid is a Monday-to-Sunday week laid out as time label x day index.
type WeeklyGrid struct {
	WeekStart string                 `json:"week_start"`
	Days      []string               `json:"days"`
	Slots     []string               `json:"slots"`
	Rows      map[string][]*WeekCell `json:"rows"`
}

// WeekStart returns the Monday of day's week, at midnight in loc.
func WeekStart(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	offset := (int(d.Weekday()) + 6) % 7
	y, m, dd := d.Date()
	return time.Date(y, m, dd-offset, 0, 0, 0, 0, loc)
}

func BuildWeekly(day time.Time, loc *time.Location, events []Event) *WeeklyGrid {
	start := WeekStart(day, loc)

	g := &WeeklyGrid{
		WeekStart: start.Format(time.DateOnly),
		Days:      make([]string, 7),
		Slots:     TimeSlots(),
		Rows:      make(map[string][]*WeekCell, slotCount),
	}
	for i := range g.Days {
		g.Days[i] = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, label := range g.Slots {
		row := make([]*WeekCell, 7)
		for i := range row {
			row[i] = &WeekCell{Events: []Event{}, Rowspan: 1, Render: true}
		}
		g.Rows[label] = row
	}

	for _, e := range events {
		local := e.StartsAt.In(loc)
		dayIdx := int(appointment.CalendarDate(local).Sub(appointment.CalendarDate(start)).Hours() / 24)
		if dayIdx < 0 || dayIdx > 6 {
			continue
		}
		slot, span, ok := placement(e, loc)
		if !ok {
			continue
		}
		cell := g.Rows[g.Slots[slot]][dayIdx]
		cell.Events = append(cell.Events, e)
		if span > cell.Rowspan {
			cell.Rowspan = span
		}
		for k := 1; k < span; k++ {
			g.Rows[g.Slots[slot+k]][dayIdx].Render = false
		}
	}

	return g
}
