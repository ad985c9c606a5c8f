package booking

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/agendly/agendly/services/booking-service/internal/model"
)

// ServiceRequest carries the mutable fields of a catalog entry.
type ServiceRequest struct {
	Name            string
	DurationMinutes int
	Price           *float64
}

func (r ServiceRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalidf("name", "must not be empty")
	}
	if r.DurationMinutes <= 0 {
		return invalidf("duration_minutes", "must be positive")
	}
	if r.Price != nil && *r.Price < 0 {
		return invalidf("price", "must not be negative")
	}
	return nil
}

// ListServices returns the catalog: professionals see their own offerings,
// clients the whole catalog.
func (e *Engine) ListServices(ctx context.Context, actor Actor) ([]model.Service, error) {
	if actor.isProfessional() {
		return e.services.ListForProfessional(ctx, actor.ID)
	}
	return e.services.List(ctx)
}

// GetService fetches one catalog entry.
func (e *Engine) GetService(ctx context.Context, id string) (model.Service, error) {
	if !isUUID(id) {
		return model.Service{}, invalidf("id", "must be a valid UUID")
	}
	return e.services.GetByID(ctx, id)
}

// CreateService adds an offering owned by the acting professional.
func (e *Engine) CreateService(ctx context.Context, actor Actor, req ServiceRequest) (model.Service, error) {
	if !actor.isProfessional() {
		return model.Service{}, forbidden("only professionals can manage services")
	}
	if err := req.validate(); err != nil {
		return model.Service{}, err
	}
	owner := actor.ID
	svc := model.Service{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		ProfessionalID:  &owner,
	}
	return e.services.Insert(ctx, svc)
}

// UpdateService replaces the mutable fields of an offering the actor owns.
func (e *Engine) UpdateService(ctx context.Context, actor Actor, id string, req ServiceRequest) (model.Service, error) {
	if !isUUID(id) {
		return model.Service{}, invalidf("id", "must be a valid UUID")
	}
	svc, err := e.services.GetByID(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	if err := e.policy.CanManageService(actor, svc); err != nil {
		return model.Service{}, err
	}
	if err := req.validate(); err != nil {
		return model.Service{}, err
	}
	svc.Name = strings.TrimSpace(req.Name)
	svc.DurationMinutes = req.DurationMinutes
	svc.Price = req.Price
	return e.services.Update(ctx, svc)
}

// DeleteService removes an offering the actor owns. The store refuses with
// ErrServiceInUse while appointments still reference it.
func (e *Engine) DeleteService(ctx context.Context, actor Actor, id string) error {
	if !isUUID(id) {
		return invalidf("id", "must be a valid UUID")
	}
	svc, err := e.services.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := e.policy.CanManageService(actor, svc); err != nil {
		return err
	}
	return e.services.Delete(ctx, svc.ID)
}
