package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/hackgods/spa-agenda/internal/logger"
)

type SimConfig struct {
	APIBaseURL  string        `env:"SIM_API_BASE_URL" env-default:"http://localhost:8080"`
	Username    string        `env:"SIM_USERNAME"`
	Password    string        `env:"SIM_PASSWORD"`
	Duration    time.Duration `env:"SIM_DURATION" env-default:"30s"`
	Workers     int           `env:"SIM_WORKERS" env-default:"10"`
	Days        int           `env:"SIM_DAYS" env-default:"7"`
	BookRatio   float64       `env:"SIM_BOOKING_RATIO" env-default:"0.5"`
	CancelRatio float64       `env:"SIM_CANCEL_RATIO" env-default:"0.1"`
	ReadRatio   float64       `env:"SIM_READ_RATIO" env-default:"0.4"`
	LogEnv      string        `env:"APP_ENV" env-default:"local"`
}

func loadConfig() (SimConfig, error) {
	_ = godotenv.Load()

	var cfg SimConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return SimConfig{}, fmt.Errorf("read env: %w", err)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return SimConfig{}, errors.New("SIM_USERNAME and SIM_PASSWORD are required")
	}
	if cfg.Workers <= 0 {
		return SimConfig{}, errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, errors.New("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		cfg.Days = 1
	}

	total := cfg.BookRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg, nil
}

type reference struct {
	ID uuid.UUID `json:"id"`
}

// DataPool holds the records bookings are drawn from plus the appointments
// this run has created.
type DataPool struct {
	Therapists []uuid.UUID
	Rooms      []uuid.UUID
	Treatments []uuid.UUID
	Clients    []uuid.UUID

	mu           sync.Mutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

// TakeAppointment removes and returns a random appointment.
func (dp *DataPool) TakeAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	idx := rng.Intn(len(dp.appointments))
	id := dp.appointments[idx]
	dp.appointments[idx] = dp.appointments[len(dp.appointments)-1]
	dp.appointments = dp.appointments[:len(dp.appointments)-1]
	return id, true
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	token   string
	log     *slog.Logger
	metrics Metrics
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid config", logger.Err(err))
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogEnv)

	log.Info("simulator starting",
		slog.Duration("duration", cfg.Duration),
		slog.Int("workers", cfg.Workers),
		slog.Float64("booking", cfg.BookRatio),
		slog.Float64("cancel", cfg.CancelRatio),
		slog.Float64("read", cfg.ReadRatio),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sim.login(ctx); err != nil {
		log.Error("login", logger.Err(err))
		os.Exit(1)
	}
	if err := sim.loadDataPool(ctx); err != nil {
		log.Error("load data pool", logger.Err(err))
		os.Exit(1)
	}

	log.Info("data pool loaded",
		slog.Int("therapists", len(sim.pool.Therapists)),
		slog.Int("rooms", len(sim.pool.Rooms)),
		slog.Int("treatments", len(sim.pool.Treatments)),
		slog.Int("clients", len(sim.pool.Clients)),
	)

	sim.Run()
	sim.PrintReport()
}

func (s *Simulator) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return s.client.Do(req)
}

func (s *Simulator) login(ctx context.Context) error {
	resp, err := s.send(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": s.config.Username,
		"password": s.config.Password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode login: %w", err)
	}
	s.token = out.Token
	return nil
}

// loadDataPool reads the reference lists the agenda endpoint already
// returns for its booking form.
func (s *Simulator) loadDataPool(ctx context.Context) error {
	resp, err := s.send(ctx, http.MethodGet, "/agenda", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agenda returned %d", resp.StatusCode)
	}

	var refs struct {
		Therapists []reference `json:"therapists"`
		Rooms      []reference `json:"rooms"`
		Treatments []reference `json:"treatments"`
		Clients    []reference `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return fmt.Errorf("decode agenda: %w", err)
	}

	ids := func(in []reference) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(in))
		for _, r := range in {
			out = append(out, r.ID)
		}
		return out
	}
	s.pool = &DataPool{
		Therapists: ids(refs.Therapists),
		Rooms:      ids(refs.Rooms),
		Treatments: ids(refs.Treatments),
		Clients:    ids(refs.Clients),
	}

	if len(s.pool.Therapists) == 0 || len(s.pool.Rooms) == 0 || len(s.pool.Treatments) == 0 || len(s.pool.Clients) == 0 {
		return errors.New("clinic has no therapists, rooms, treatments or clients; run cmd/seed first")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info("starting simulation", slog.Duration("duration", s.config.Duration), slog.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		case rng.Intn(2) == 0:
			s.doRead(ctx, "/agenda?view=weekly", &s.metrics.Agenda)
		default:
			s.doRead(ctx, "/dashboard", &s.metrics.Dashboard)
		}
	}
}

func pick(rng *rand.Rand, ids []uuid.UUID) uuid.UUID {
	return ids[rng.Intn(len(ids))]
}

// doBooking aims at a random half hour between 09:00 and 20:30 on one of
// the next configured days, so workers collide on the same therapists and
// rooms.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	day := time.Now().AddDate(0, 0, rng.Intn(s.config.Days)).Format(time.DateOnly)
	slot := 18 + rng.Intn(24)

	body := map[string]string{
		"client_id":    pick(rng, s.pool.Clients).String(),
		"therapist_id": pick(rng, s.pool.Therapists).String(),
		"room_id":      pick(rng, s.pool.Rooms).String(),
		"treatment_id": pick(rng, s.pool.Treatments).String(),
		"date":         day,
		"time":         fmt.Sprintf("%02d:%02d", slot/2, (slot%2)*30),
	}

	start := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/appointments", body)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var created struct {
				Appointment reference `json:"appointment"`
			}
			if json.NewDecoder(resp.Body).Decode(&created) == nil && created.Appointment.ID != uuid.Nil {
				s.pool.AddAppointment(created.Appointment.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.TakeAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/appointments/"+id.String()+"/status", map[string]string{"status": "cancelled"})
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Cancel.Record(latency, success, false)
}

func (s *Simulator) doRead(ctx context.Context, path string, om *OperationMetrics) {
	start := time.Now()
	resp, err := s.send(ctx, http.MethodGet, path, nil)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		success = resp.StatusCode == http.StatusOK
	} else if ctx.Err() != nil {
		return
	}

	om.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Weekly agenda", &s.metrics.Agenda)
	printOperationReport("Dashboard", &s.metrics.Dashboard)
}
