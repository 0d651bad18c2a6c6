package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/spa-agenda/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

const (
	clientColumns       = `id, name, phone, email, membership_tier, membership_expires_on, created_at, updated_at`
	therapistColumns    = `id, name, specialty, created_at, updated_at`
	roomColumns         = `id, name, description, created_at, updated_at`
	treatmentColumns    = `id, name, duration_minutes, price, created_at, updated_at`
	receptionistColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`
)

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Tier, &c.MembershipExpiresOn, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanTherapist(row pgx.Row) (*Therapist, error) {
	var t Therapist
	err := row.Scan(&t.ID, &t.Name, &t.Specialty, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTherapistNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &r, nil
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.Name, &t.DurationMinutes, &t.Price, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanReceptionist(row pgx.Row) (*Receptionist, error) {
	var r Receptionist
	err := row.Scan(&r.ID, &r.Username, &r.Email, &r.PasswordHash, &r.IsAdmin, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceptionistNotFound
		}
		return nil, err
	}
	return &r, nil
}

// collect drains rows through scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// deleteByID removes one row and reports notFound when nothing matched.
// A foreign key violation means the row is still referenced.
func (r *PgRepository) deleteByID(ctx context.Context, table string, id uuid.UUID, notFound, inUse error) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if inUse != nil && db.IsForeignKeyViolation(err) {
			return inUse
		}
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// Clients

func (r *PgRepository) CreateClient(ctx context.Context, c Client) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, name, phone, email, membership_tier, membership_expires_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+clientColumns,
		uuid.New(), c.Name, c.Phone, c.Email, c.Tier, c.MembershipExpiresOn)

	created, err := scanClient(row)
	if db.IsUniqueViolation(err, "clients_phone_key") {
		return nil, ErrDuplicatePhone
	}
	return created, err
}

func (r *PgRepository) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *PgRepository) FindClientByPhone(ctx context.Context, phone string) (*Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone = $1`, phone))
}

func (r *PgRepository) SearchClients(ctx context.Context, q string, limit, offset int) ([]Client, int, error) {
	const filter = `WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%' OR phone LIKE '%' || $1::text || '%'`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM clients `+filter, q).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		`+filter+`
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search clients: %w", err)
	}

	clients, err := collect(rows, scanClient)
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *PgRepository) UpdateClient(ctx context.Context, c Client) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $2,
		    phone = $3,
		    email = $4,
		    membership_tier = $5,
		    membership_expires_on = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns,
		c.ID, c.Name, c.Phone, c.Email, c.Tier, c.MembershipExpiresOn)

	updated, err := scanClient(row)
	if db.IsUniqueViolation(err, "clients_phone_key") {
		return nil, ErrDuplicatePhone
	}
	return updated, err
}

func (r *PgRepository) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "clients", id, ErrClientNotFound, ErrClientHasAppointments)
}

func (r *PgRepository) ClientHasAppointments(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE client_id = $1)`, id)
}

// Therapists

func (r *PgRepository) CreateTherapist(ctx context.Context, t Therapist) (*Therapist, error) {
	return scanTherapist(r.pool.QueryRow(ctx, `
		INSERT INTO therapists (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING `+therapistColumns,
		uuid.New(), t.Name, t.Specialty))
}

func (r *PgRepository) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return scanTherapist(r.pool.QueryRow(ctx, `SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, id))
}

func (r *PgRepository) ListTherapists(ctx context.Context) ([]Therapist, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+therapistColumns+` FROM therapists ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	return collect(rows, scanTherapist)
}

func (r *PgRepository) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "therapists", id, ErrTherapistNotFound, ErrTherapistInUse)
}

func (r *PgRepository) TherapistInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE therapist_id = $1)
		    OR EXISTS (SELECT 1 FROM availabilities WHERE therapist_id = $1)
		    OR EXISTS (SELECT 1 FROM schedule_blocks WHERE therapist_id = $1)
	`, id)
}

// Rooms

func (r *PgRepository) CreateRoom(ctx context.Context, room Room) (*Room, error) {
	created, err := scanRoom(r.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING `+roomColumns,
		uuid.New(), room.Name, room.Description))
	if db.IsUniqueViolation(err, "rooms_name_key") {
		return nil, ErrDuplicateRoomName
	}
	return created, err
}

func (r *PgRepository) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

func (r *PgRepository) FindRoomByName(ctx context.Context, name string) (*Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE name = $1`, name))
}

func (r *PgRepository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return collect(rows, scanRoom)
}

func (r *PgRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "rooms", id, ErrRoomNotFound, ErrRoomInUse)
}

func (r *PgRepository) RoomInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE room_id = $1)`, id)
}

// Treatments

func (r *PgRepository) CreateTreatment(ctx context.Context, t Treatment) (*Treatment, error) {
	return scanTreatment(r.pool.QueryRow(ctx, `
		INSERT INTO treatments (id, name, duration_minutes, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING `+treatmentColumns,
		uuid.New(), t.Name, t.DurationMinutes, t.Price))
}

func (r *PgRepository) GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return scanTreatment(r.pool.QueryRow(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE id = $1`, id))
}

func (r *PgRepository) ListTreatments(ctx context.Context) ([]Treatment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+treatmentColumns+` FROM treatments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	return collect(rows, scanTreatment)
}

func (r *PgRepository) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "treatments", id, ErrTreatmentNotFound, ErrTreatmentInUse)
}

func (r *PgRepository) TreatmentInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE treatment_id = $1)`, id)
}

// Receptionists

func (r *PgRepository) CreateReceptionist(ctx context.Context, rec Receptionist) (*Receptionist, error) {
	created, err := scanReceptionist(r.pool.QueryRow(ctx, `
		INSERT INTO receptionists (id, username, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+receptionistColumns,
		uuid.New(), rec.Username, rec.Email, rec.PasswordHash, rec.IsAdmin))
	switch {
	case db.IsUniqueViolation(err, "receptionists_username_key"):
		return nil, ErrDuplicateUsername
	case db.IsUniqueViolation(err, "receptionists_email_key"):
		return nil, ErrDuplicateEmail
	}
	return created, err
}

func (r *PgRepository) GetReceptionist(ctx context.Context, id uuid.UUID) (*Receptionist, error) {
	return scanReceptionist(r.pool.QueryRow(ctx, `SELECT `+receptionistColumns+` FROM receptionists WHERE id = $1`, id))
}

func (r *PgRepository) FindReceptionistByUsername(ctx context.Context, username string) (*Receptionist, error) {
	return scanReceptionist(r.pool.QueryRow(ctx, `SELECT `+receptionistColumns+` FROM receptionists WHERE username = $1`, username))
}

func (r *PgRepository) FindReceptionistByEmail(ctx context.Context, email string) (*Receptionist, error) {
	return scanReceptionist(r.pool.QueryRow(ctx, `SELECT `+receptionistColumns+` FROM receptionists WHERE email = $1`, email))
}

func (r *PgRepository) ListReceptionists(ctx context.Context) ([]Receptionist, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+receptionistColumns+` FROM receptionists ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list receptionists: %w", err)
	}
	return collect(rows, scanReceptionist)
}

func (r *PgRepository) UpdateReceptionistPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receptionists SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceptionistNotFound
	}
	return nil
}

func (r *PgRepository) SetReceptionistAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receptionists SET is_admin = $2, updated_at = now() WHERE id = $1
	`, id, admin)
	if err != nil {
		return fmt.Errorf("update admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceptionistNotFound
	}
	return nil
}

func (r *PgRepository) DeleteReceptionist(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "receptionists", id, ErrReceptionistNotFound, nil)
}
