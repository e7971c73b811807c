package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. Its ID is the owner identity of every record it creates.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
