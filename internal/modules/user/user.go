package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system. Role gates privileged
// operations such as the reservation cleanup sweep.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Role         string    `json:"role"` // ADMIN, MANAGER, STAFF
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
