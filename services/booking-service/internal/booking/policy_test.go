package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/agendly/agendly/services/booking-service/internal/model"
)

func TestCanCancelLeadBoundary(t *testing.T) {
	p := Policy{CancelLead: DefaultCancelLead}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actor := Actor{ID: "c1", Role: model.RoleClient}

	cases := []struct {
		name    string
		start   time.Time
		allowed bool
	}{
		{"well ahead", now.Add(5 * time.Hour), true},
		{"121 minutes", now.Add(121 * time.Minute), true},
		{"exactly 120 minutes", now.Add(120 * time.Minute), true},
		{"119 minutes", now.Add(119 * time.Minute), false},
		{"already started", now.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appt := model.Appointment{ClientID: "c1", ProfessionalID: "p1", StartTime: tc.start}
			err := p.CanCancel(actor, appt, now)
			if tc.allowed && err != nil {
				t.Fatalf("want allowed, got %v", err)
			}
			if !tc.allowed && err == nil {
				t.Fatal("want forbidden, got nil")
			}
		})
	}
}

func TestCanCancelProfessionalAnyTime(t *testing.T) {
	p := Policy{CancelLead: DefaultCancelLead}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	appt := model.Appointment{ClientID: "c1", ProfessionalID: "p1", StartTime: now.Add(10 * time.Minute)}

	if err := p.CanCancel(Actor{ID: "p1", Role: model.RoleProfessional}, appt, now); err != nil {
		t.Fatalf("owner professional refused: %v", err)
	}
	if err := p.CanCancel(Actor{ID: "p2", Role: model.RoleProfessional}, appt, now); err == nil {
		t.Fatal("foreign professional allowed")
	}
}

func TestCanUpdateHidesForeignAppointments(t *testing.T) {
	p := Policy{}
	appt := model.Appointment{ProfessionalID: "p1"}

	if err := p.CanUpdate(Actor{ID: "p1", Role: model.RoleProfessional}, appt); err != nil {
		t.Fatalf("owner refused: %v", err)
	}
	if err := p.CanUpdate(Actor{ID: "p2", Role: model.RoleProfessional}, appt); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("foreign professional: want not-found, got %v", err)
	}
	var ferr *ForbiddenError
	if err := p.CanUpdate(Actor{ID: "c1", Role: model.RoleClient}, appt); !errors.As(err, &ferr) {
		t.Fatalf("client: want forbidden, got %v", err)
	}
}
