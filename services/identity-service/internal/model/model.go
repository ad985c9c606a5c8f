package model

import "time"

const (
	RoleClient       = "client"
	RoleProfessional = "professional"
)

// Account is a login identity. PasswordHash never leaves the service.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClientProfile is the bookkeeping record a professional keeps about a
// client, attached to the client's login account.
type ClientProfile struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	ProfessionalID string    `json:"professional_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
