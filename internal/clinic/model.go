package clinic

import (
	"time"

	"github.com/google/uuid"
)

type MembershipTier string

const (
	TierHotelGuest MembershipTier = "hotel_guest"
	TierSpaDay     MembershipTier = "spa_day"
	TierMonthly    MembershipTier = "monthly"
	TierAnnual     MembershipTier = "annual"
)

func (t MembershipTier) Valid() bool {
	switch t {
	case TierHotelGuest, TierSpaDay, TierMonthly, TierAnnual:
		return true
	}
	return false
}

// HasExpiry reports whether memberships of this tier run until a date.
func (t MembershipTier) HasExpiry() bool {
	return t == TierMonthly || t == TierAnnual
}

type Client struct {
	ID                  uuid.UUID      `json:"id"`
	Name                string         `json:"name"`
	Phone               string         `json:"phone"`
	Email               *string        `json:"email,omitempty"`
	Tier                MembershipTier `json:"membership_tier"`
	MembershipExpiresOn *time.Time     `json:"membership_expires_on,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type Therapist struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Treatment struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           *float64  `json:"price,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t Treatment) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

type Receptionist struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ClientPage struct {
	Clients []Client `json:"clients"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Pages   int      `json:"pages"`
}
