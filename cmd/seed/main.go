package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/config"
	"github.com/hackgods/spa-agenda/internal/db"
	"github.com/hackgods/spa-agenda/internal/logger"
)

const (
	therapistCount = 6
	clientCount    = 300
	availableDays  = 14
)

var (
	specialties = []string{
		"Masaje terapéutico",
		"Reflexología",
		"Estética facial",
		"Hidroterapia",
		"Drenaje linfático",
		"Aromaterapia",
	}

	rooms = []string{"Gabinete 1", "Gabinete 2", "Gabinete 3", "Sala de hidroterapia", "Cabina doble"}

	treatments = []clinic.TreatmentInput{
		{Name: "Masaje relajante", DurationMinutes: 60, Price: price(55)},
		{Name: "Masaje descontracturante", DurationMinutes: 90, Price: price(80)},
		{Name: "Facial hidratante", DurationMinutes: 45, Price: price(40)},
		{Name: "Reflexología podal", DurationMinutes: 30, Price: price(30)},
		{Name: "Circuito de aguas", DurationMinutes: 120, Price: price(35)},
		{Name: "Envoltura de algas", DurationMinutes: 50, Price: nil},
	}

	tiers = []clinic.MembershipTier{clinic.TierHotelGuest, clinic.TierSpaDay, clinic.TierMonthly, clinic.TierAnnual}
)

func price(v float64) *float64 { return &v }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", logger.Err(err))
		os.Exit(1)
	}
	log := logger.Setup(cfg.Env)
	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Error("connect postgres", logger.Err(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migrate", logger.Err(err))
		os.Exit(1)
	}

	gofakeit.Seed(time.Now().UnixNano())

	s := &seeder{
		clinic: clinic.NewService(clinic.NewPgRepository(pool), auth.HashPassword, log),
		appts:  appointment.NewPgRepository(pool),
		loc:    cfg.Location(),
		log:    log,
	}
	if err := s.run(ctx); err != nil {
		log.Error("seed failed", logger.Err(err))
		os.Exit(1)
	}

	log.Info("seed complete")
}

type seeder struct {
	clinic *clinic.Service
	appts  *appointment.PgRepository
	loc    *time.Location
	log    *slog.Logger
}

func (s *seeder) run(ctx context.Context) error {
	therapists, err := s.seedTherapists(ctx)
	if err != nil {
		return fmt.Errorf("seed therapists: %w", err)
	}
	if err := s.seedRooms(ctx); err != nil {
		return fmt.Errorf("seed rooms: %w", err)
	}
	if err := s.seedTreatments(ctx); err != nil {
		return fmt.Errorf("seed treatments: %w", err)
	}
	if err := s.seedClients(ctx); err != nil {
		return fmt.Errorf("seed clients: %w", err)
	}
	if err := s.seedAvailability(ctx, therapists); err != nil {
		return fmt.Errorf("seed availability: %w", err)
	}
	return nil
}

func (s *seeder) seedTherapists(ctx context.Context) ([]clinic.Therapist, error) {
	out := make([]clinic.Therapist, 0, therapistCount)
	for i := 0; i < therapistCount; i++ {
		spec := specialties[i%len(specialties)]
		t, err := s.clinic.CreateTherapist(ctx, clinic.TherapistInput{Name: gofakeit.Name(), Specialty: &spec})
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	s.log.Info("therapists seeded", slog.Int("count", len(out)))
	return out, nil
}

func (s *seeder) seedRooms(ctx context.Context) error {
	created := 0
	for _, name := range rooms {
		_, err := s.clinic.CreateRoom(ctx, clinic.RoomInput{Name: name})
		if errors.Is(err, clinic.ErrDuplicateRoomName) {
			continue
		}
		if err != nil {
			return err
		}
		created++
	}
	s.log.Info("rooms seeded", slog.Int("count", created))
	return nil
}

func (s *seeder) seedTreatments(ctx context.Context) error {
	for _, in := range treatments {
		if _, err := s.clinic.CreateTreatment(ctx, in); err != nil {
			return err
		}
	}
	s.log.Info("treatments seeded", slog.Int("count", len(treatments)))
	return nil
}

func (s *seeder) seedClients(ctx context.Context) error {
	created := 0
	for i := 0; i < clientCount; i++ {
		in := clinic.ClientInput{
			Name:  gofakeit.Name(),
			Phone: gofakeit.Numerify("55########"),
			Tier:  tiers[gofakeit.Number(0, len(tiers)-1)],
		}
		if gofakeit.Bool() {
			email := gofakeit.Email()
			in.Email = &email
		}
		if in.Tier.HasExpiry() {
			exp := appointment.CalendarDate(time.Now().AddDate(0, gofakeit.Number(1, 12), 0))
			in.ExpiresOn = &exp
		}

		_, err := s.clinic.CreateClient(ctx, in)
		if errors.Is(err, clinic.ErrDuplicatePhone) {
			continue
		}
		if err != nil {
			return err
		}
		created++

		if created%100 == 0 {
			s.log.Info("clients seeded", slog.Int("done", created), slog.Int("total", clientCount))
		}
	}
	s.log.Info("clients seeded", slog.Int("count", created))
	return nil
}

// seedAvailability gives every therapist a morning or afternoon shift on
// each of the next availableDays days, skipping Sundays.
func (s *seeder) seedAvailability(ctx context.Context, therapists []clinic.Therapist) error {
	today := time.Now().In(s.loc)
	windows := 0
	for d := 0; d < availableDays; d++ {
		day := appointment.CalendarDate(today.AddDate(0, 0, d))
		if day.Weekday() == time.Sunday {
			continue
		}
		for i, t := range therapists {
			start, end := appointment.NewTimeOfDay(9, 0), appointment.NewTimeOfDay(15, 0)
			if (i+d)%2 == 1 {
				start, end = appointment.NewTimeOfDay(14, 0), appointment.NewTimeOfDay(21, 0)
			}
			if _, err := s.appts.CreateAvailability(ctx, appointment.Availability{
				TherapistID: t.ID,
				Date:        day,
				Start:       start,
				End:         end,
			}); err != nil {
				return err
			}
			windows++
		}
	}
	s.log.Info("availability seeded", slog.Int("windows", windows), slog.Int("days", availableDays))
	return nil
}
