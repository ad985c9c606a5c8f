package booking

import (
	"time"

	"github.com/agendly/agendly/services/booking-service/internal/model"
)

// Actor is the authenticated identity acting on the engine, resolved by the
// gateway from the bearer token.
type Actor struct {
	ID    string
	Role  string
	Name  string
	Email string
}

func (a Actor) isClient() bool       { return a.Role == model.RoleClient }
func (a Actor) isProfessional() bool { return a.Role == model.RoleProfessional }

// Policy concentrates the authorization decisions so every endpoint answers
// "may this actor do this" in one place.
type Policy struct {
	// CancelLead is how far before the start a client may still cancel.
	CancelLead time.Duration
}

// DefaultCancelLead matches the shop rule of two hours notice.
const DefaultCancelLead = 2 * time.Hour

// CanCancel decides whether the actor may cancel the appointment now.
// Professionals cancel their own appointments at any time; clients cancel
// their own appointments only up to the lead-time cutoff.
func (p Policy) CanCancel(actor Actor, appt model.Appointment, now time.Time) error {
	switch {
	case actor.isProfessional():
		if appt.ProfessionalID != actor.ID {
			return forbidden("appointment belongs to another professional")
		}
		return nil
	case actor.isClient():
		if appt.ClientID != actor.ID {
			return forbidden("appointment belongs to another client")
		}
		if appt.StartTime.Before(now.Add(p.CancelLead)) {
			return forbidden("appointments can only be cancelled at least 2 hours in advance")
		}
		return nil
	default:
		return forbidden("role may not cancel appointments")
	}
}

// CanUpdate decides whether the actor may reschedule the appointment. Only
// the owning professional may, and a foreign appointment reads as absent
// rather than forbidden so ids cannot be probed.
func (p Policy) CanUpdate(actor Actor, appt model.Appointment) error {
	if !actor.isProfessional() {
		return forbidden("only professionals can update appointments")
	}
	if appt.ProfessionalID != actor.ID {
		return ErrAppointmentNotFound
	}
	return nil
}

// CanUseService decides whether the actor may book against the service.
// Ownership only constrains professionals; clients may book any service.
func (p Policy) CanUseService(actor Actor, svc model.Service) error {
	if actor.isProfessional() && svc.ProfessionalID != nil && *svc.ProfessionalID != actor.ID {
		return forbidden("service belongs to another professional")
	}
	return nil
}

// CanManageService decides whether the actor may mutate the service catalog
// entry.
func (p Policy) CanManageService(actor Actor, svc model.Service) error {
	if !actor.isProfessional() {
		return forbidden("only professionals can manage services")
	}
	if svc.ProfessionalID != nil && *svc.ProfessionalID != actor.ID {
		return forbidden("service belongs to another professional")
	}
	return nil
}
