package model

import "time"

// Roles carried on the authenticated identity headers.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
)

// Service is an offering a professional provides. ProfessionalID is nullable
// for legacy rows created before ownership was introduced.
type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           *float64  `json:"price,omitempty"`
	ProfessionalID  *string   `json:"professional_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Appointment is a booked time window. EndTime is never persisted; it is
// synthesized from the joined service duration when listing.
type Appointment struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	ProfessionalID string     `json:"professional_id"`
	ServiceID      string     `json:"service_id"`
	StartTime      time.Time  `json:"start_time"`
	CreatedAt      time.Time  `json:"created_at"`
	EndTime        *time.Time `json:"end_time,omitempty"`

	// Joined display fields, populated on list reads.
	ServiceName     string `json:"service_name,omitempty"`
	ServiceDuration int    `json:"service_duration,omitempty"`
	ClientName      string `json:"client_name,omitempty"`
}

// ServiceUsage is one row of the summary report's per-service breakdown.
type ServiceUsage struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Count       int    `json:"count"`
}

// Summary is the professional's activity report over a date range.
type Summary struct {
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	TotalAppointments int            `json:"total_appointments"`
	TotalHours        float64        `json:"total_hours"`
	TopServices       []ServiceUsage `json:"top_services"`
}
