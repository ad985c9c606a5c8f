// Package booking implements the scheduling core: availability, booking,
// rescheduling and cancellation, with the collision rules that keep a
// professional's calendar consistent.
package booking

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/services/booking-service/internal/model"
	"github.com/agendly/agendly/services/booking-service/internal/schedule"
	"github.com/agendly/agendly/services/booking-service/internal/timeutil"
)

// ServiceStore is the catalog the engine books against.
type ServiceStore interface {
	GetByID(ctx context.Context, id string) (model.Service, error)
	List(ctx context.Context) ([]model.Service, error)
	ListForProfessional(ctx context.Context, professionalID string) ([]model.Service, error)
	Insert(ctx context.Context, svc model.Service) (model.Service, error)
	Update(ctx context.Context, svc model.Service) (model.Service, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentStore persists appointments. Day listings join the service so
// durations and names come back in one read.
type AppointmentStore interface {
	Insert(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	Update(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
	ListDayForProfessional(ctx context.Context, professionalID string, dayStart, dayEnd time.Time) ([]model.Appointment, error)
	ListDayForClient(ctx context.Context, clientID string, dayStart, dayEnd time.Time) ([]model.Appointment, error)
	ListDay(ctx context.Context, dayStart, dayEnd time.Time) ([]model.Appointment, error)
	ListForClient(ctx context.Context, clientID string, from *time.Time) ([]model.Appointment, error)
	SummaryForProfessional(ctx context.Context, professionalID string, from, to time.Time) (total int, totalMinutes int, usage []model.ServiceUsage, err error)
}

// EventRecorder accepts domain events for asynchronous delivery. Recording
// is best effort; a failure never rolls back the booking.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, payload any) error
}

// EngineConfig wires an Engine. Zero values fall back to the defaults noted
// on each field.
type EngineConfig struct {
	Services     ServiceStore
	Appointments AppointmentStore
	Events       EventRecorder // optional
	Hours        schedule.Hours
	CancelLead   time.Duration // default 2h
	Clock        Clock         // default system UTC
	Logger       *slog.Logger
}

type Engine struct {
	services     ServiceStore
	appointments AppointmentStore
	events       EventRecorder
	policy       Policy
	hours        schedule.Hours
	clock        Clock
	logger       *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Hours == (schedule.Hours{}) {
		cfg.Hours = schedule.DefaultHours
	}
	if cfg.CancelLead == 0 {
		cfg.CancelLead = DefaultCancelLead
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		services:     cfg.Services,
		appointments: cfg.Appointments,
		events:       cfg.Events,
		policy:       Policy{CancelLead: cfg.CancelLead},
		hours:        cfg.Hours,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
}

// Event types published on the booking lifecycle.
const (
	EventBooked    = "booking.appointment.booked"
	EventCancelled = "booking.appointment.cancelled"
)

// AppointmentEvent is the payload published for booking lifecycle events.
// ClientEmail is only known when the client acted for themselves.
type AppointmentEvent struct {
	model.Appointment
	ClientEmail string `json:"client_email,omitempty"`
}

// CreateRequest books a new appointment. ClientID is only honoured when the
// actor is a professional booking on a client's behalf; left empty, the
// professional books the slot for themselves.
type CreateRequest struct {
	ServiceID string
	Date      string
	StartTime string
	ClientID  string
}

// Create runs the full booking flow: validation, ownership, the business-
// hours fit, a fresh collision check against the professional's day, and the
// insert. The database exclusion constraint backstops the race the collision
// check cannot close on its own.
func (e *Engine) Create(ctx context.Context, actor Actor, req CreateRequest) (model.Appointment, error) {
	if !isUUID(req.ServiceID) {
		return model.Appointment{}, invalidf("service_id", "must be a valid UUID")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, invalidf("date", "%v", err)
	}
	startMin, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		return model.Appointment{}, invalidf("start_time", "%v", err)
	}
	if startMin < e.hours.Open || startMin > e.hours.Close {
		return model.Appointment{}, invalidf("start_time", "outside business hours (%s-%s)",
			timeutil.FormatClock(e.hours.Open), timeutil.FormatClock(e.hours.Close))
	}

	svc, err := e.services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.policy.CanUseService(actor, svc); err != nil {
		return model.Appointment{}, err
	}
	if svc.DurationMinutes <= 0 {
		return model.Appointment{}, &IntegrityError{Reason: "service has non-positive duration"}
	}
	endMin := startMin + svc.DurationMinutes
	if endMin > e.hours.Close {
		return model.Appointment{}, invalidf("start_time", "appointment would end after closing time")
	}

	var clientID, professionalID string
	switch {
	case actor.isClient():
		clientID = actor.ID
		if svc.ProfessionalID == nil {
			return model.Appointment{}, invalidf("service_id", "service has no assigned professional")
		}
		professionalID = *svc.ProfessionalID
	case actor.isProfessional():
		clientID = actor.ID
		if req.ClientID != "" {
			if !isUUID(req.ClientID) {
				return model.Appointment{}, invalidf("client_id", "must be a valid UUID")
			}
			clientID = req.ClientID
		}
		professionalID = actor.ID
	default:
		return model.Appointment{}, forbidden("role may not book appointments")
	}

	busy, err := e.busyWindows(ctx, professionalID, date, "")
	if err != nil {
		return model.Appointment{}, err
	}
	if schedule.Collides(startMin, endMin, busy) {
		return model.Appointment{}, ErrScheduleConflict
	}

	appt := model.Appointment{
		ID:              uuid.NewString(),
		ClientID:        clientID,
		ProfessionalID:  professionalID,
		ServiceID:       svc.ID,
		StartTime:       timeutil.Combine(date, startMin),
		ServiceName:     svc.Name,
		ServiceDuration: svc.DurationMinutes,
	}
	if actor.isClient() {
		appt.ClientName = actor.Name
	}
	created, err := e.appointments.Insert(ctx, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	end := created.StartTime.Add(time.Duration(svc.DurationMinutes) * time.Minute)
	created.EndTime = &end

	e.record(ctx, EventBooked, AppointmentEvent{Appointment: created, ClientEmail: clientEmail(actor)})
	return created, nil
}

// UpdateRequest reschedules an appointment or reassigns its client. Empty
// fields keep the current value.
type UpdateRequest struct {
	ServiceID string
	ClientID  string
	Date      string
	StartTime string
}

// Update moves an appointment to a new service, date or time. Only the
// owning professional may reschedule; anyone else sees a 404 so ids cannot
// be probed. The appointment's own window is excluded from the collision set
// so shifting within its current slot works.
func (e *Engine) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (model.Appointment, error) {
	if !isUUID(id) {
		return model.Appointment{}, invalidf("id", "must be a valid UUID")
	}
	appt, err := e.appointments.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.policy.CanUpdate(actor, appt); err != nil {
		return model.Appointment{}, err
	}

	serviceID := appt.ServiceID
	if req.ServiceID != "" {
		if !isUUID(req.ServiceID) {
			return model.Appointment{}, invalidf("service_id", "must be a valid UUID")
		}
		serviceID = req.ServiceID
	}
	clientID := appt.ClientID
	if req.ClientID != "" {
		if !isUUID(req.ClientID) {
			return model.Appointment{}, invalidf("client_id", "must be a valid UUID")
		}
		clientID = req.ClientID
	}
	svc, err := e.services.GetByID(ctx, serviceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.policy.CanUseService(actor, svc); err != nil {
		return model.Appointment{}, err
	}
	if svc.DurationMinutes <= 0 {
		return model.Appointment{}, &IntegrityError{Reason: "service has non-positive duration"}
	}

	curDate, curClock := timeutil.Split(appt.StartTime)
	if req.Date == "" {
		req.Date = curDate
	}
	if req.StartTime == "" {
		req.StartTime = curClock
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, invalidf("date", "%v", err)
	}
	startMin, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		return model.Appointment{}, invalidf("start_time", "%v", err)
	}
	if startMin < e.hours.Open || startMin > e.hours.Close {
		return model.Appointment{}, invalidf("start_time", "outside business hours (%s-%s)",
			timeutil.FormatClock(e.hours.Open), timeutil.FormatClock(e.hours.Close))
	}
	endMin := startMin + svc.DurationMinutes
	if endMin > e.hours.Close {
		return model.Appointment{}, invalidf("start_time", "appointment would end after closing time")
	}

	busy, err := e.busyWindows(ctx, appt.ProfessionalID, date, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	if schedule.Collides(startMin, endMin, busy) {
		return model.Appointment{}, ErrScheduleConflict
	}

	// The stored name is a snapshot of whoever booked; it is stale once the
	// appointment belongs to someone else.
	if clientID != appt.ClientID {
		appt.ClientName = ""
	}
	appt.ClientID = clientID
	appt.ServiceID = svc.ID
	appt.StartTime = timeutil.Combine(date, startMin)
	appt.ServiceName = svc.Name
	appt.ServiceDuration = svc.DurationMinutes
	updated, err := e.appointments.Update(ctx, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	end := updated.StartTime.Add(time.Duration(svc.DurationMinutes) * time.Minute)
	updated.EndTime = &end
	return updated, nil
}

// Cancel deletes an appointment under the cancellation policy: clients only
// their own and only with enough notice, professionals any of their own.
func (e *Engine) Cancel(ctx context.Context, actor Actor, id string) error {
	if !isUUID(id) {
		return invalidf("id", "must be a valid UUID")
	}
	appt, err := e.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := e.policy.CanCancel(actor, appt, e.clock.Now()); err != nil {
		return err
	}
	if err := e.appointments.Delete(ctx, id); err != nil {
		return err
	}
	e.record(ctx, EventCancelled, AppointmentEvent{Appointment: appt, ClientEmail: clientEmail(actor)})
	return nil
}

// ListDay returns the actor's appointments on a calendar day, scoped by
// role: clients see their own bookings, professionals their own calendar.
func (e *Engine) ListDay(ctx context.Context, actor Actor, dateStr string) ([]model.Appointment, error) {
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return nil, invalidf("date", "%v", err)
	}
	dayStart, dayEnd := dayBounds(date)

	var appts []model.Appointment
	switch {
	case actor.isClient():
		appts, err = e.appointments.ListDayForClient(ctx, actor.ID, dayStart, dayEnd)
	case actor.isProfessional():
		appts, err = e.appointments.ListDayForProfessional(ctx, actor.ID, dayStart, dayEnd)
	default:
		return nil, forbidden("role may not list appointments")
	}
	if err != nil {
		return nil, err
	}
	return withEndTimes(appts), nil
}

// ListMine returns a client's own appointments, upcoming by default.
func (e *Engine) ListMine(ctx context.Context, actor Actor, includePast bool) ([]model.Appointment, error) {
	if !actor.isClient() {
		return nil, forbidden("only clients can list their own appointments")
	}
	var from *time.Time
	if !includePast {
		now := e.clock.Now()
		from = &now
	}
	appts, err := e.appointments.ListForClient(ctx, actor.ID, from)
	if err != nil {
		return nil, err
	}
	return withEndTimes(appts), nil
}

// Availability is the free-slot response for one service on one day.
type Availability struct {
	Date            string   `json:"date"`
	ServiceID       string   `json:"service_id"`
	DurationMinutes int      `json:"duration_minutes"`
	AvailableTimes  []string `json:"available_times"`
}

// AvailableTimes computes the bookable start times for a service on a day.
// The busy set is the owning professional's calendar; services without an
// owner fall back to every appointment on the day.
func (e *Engine) AvailableTimes(ctx context.Context, serviceID, dateStr string) (Availability, error) {
	if !isUUID(serviceID) {
		return Availability{}, invalidf("service_id", "must be a valid UUID")
	}
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return Availability{}, invalidf("date", "%v", err)
	}
	svc, err := e.services.GetByID(ctx, serviceID)
	if err != nil {
		return Availability{}, err
	}
	if svc.DurationMinutes <= 0 {
		return Availability{}, &IntegrityError{Reason: "service has non-positive duration"}
	}

	dayStart, dayEnd := dayBounds(date)
	var appts []model.Appointment
	if svc.ProfessionalID != nil {
		appts, err = e.appointments.ListDayForProfessional(ctx, *svc.ProfessionalID, dayStart, dayEnd)
	} else {
		appts, err = e.appointments.ListDay(ctx, dayStart, dayEnd)
	}
	if err != nil {
		return Availability{}, err
	}

	return Availability{
		Date:            dateStr,
		ServiceID:       svc.ID,
		DurationMinutes: svc.DurationMinutes,
		AvailableTimes:  schedule.AvailableTimes(svc.DurationMinutes, windowsOf(appts), e.hours),
	}, nil
}

// Summary reports a professional's booked volume over a date range,
// defaulting to the trailing 30 days.
func (e *Engine) Summary(ctx context.Context, actor Actor, fromStr, toStr string) (model.Summary, error) {
	if !actor.isProfessional() {
		return model.Summary{}, forbidden("only professionals can view reports")
	}
	now := e.clock.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if fromStr != "" {
		d, err := timeutil.ParseDate(fromStr)
		if err != nil {
			return model.Summary{}, invalidf("from", "%v", err)
		}
		from = d
	}
	if toStr != "" {
		d, err := timeutil.ParseDate(toStr)
		if err != nil {
			return model.Summary{}, invalidf("to", "%v", err)
		}
		// Inclusive end of day.
		to = d.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return model.Summary{}, invalidf("to", "must not be before from")
	}

	total, totalMinutes, usage, err := e.appointments.SummaryForProfessional(ctx, actor.ID, from, to)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{
		From:              from,
		To:                to,
		TotalAppointments: total,
		TotalHours:        math.Round(float64(totalMinutes)/60*100) / 100,
		TopServices:       usage,
	}, nil
}

// busyWindows fetches a fresh view of the professional's day and projects it
// onto the minute axis, optionally excluding one appointment (the one being
// rescheduled).
func (e *Engine) busyWindows(ctx context.Context, professionalID string, date time.Time, excludeID string) ([]schedule.Window, error) {
	dayStart, dayEnd := dayBounds(date)
	appts, err := e.appointments.ListDayForProfessional(ctx, professionalID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if excludeID != "" {
		kept := appts[:0]
		for _, a := range appts {
			if a.ID != excludeID {
				kept = append(kept, a)
			}
		}
		appts = kept
	}
	return windowsOf(appts), nil
}

// windowsOf projects appointments onto the minute axis. Rows with a missing
// or corrupt duration cannot form a window and are skipped rather than
// poisoning the whole day.
func windowsOf(appts []model.Appointment) []schedule.Window {
	starts := make([]time.Time, 0, len(appts))
	durations := make([]int, 0, len(appts))
	for _, a := range appts {
		if a.ServiceDuration <= 0 {
			continue
		}
		starts = append(starts, a.StartTime)
		durations = append(durations, a.ServiceDuration)
	}
	return schedule.BuildWindows(starts, durations)
}

func withEndTimes(appts []model.Appointment) []model.Appointment {
	for i := range appts {
		if appts[i].ServiceDuration > 0 {
			end := appts[i].StartTime.Add(time.Duration(appts[i].ServiceDuration) * time.Minute)
			appts[i].EndTime = &end
		}
	}
	return appts
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (e *Engine) record(ctx context.Context, eventType string, payload any) {
	if e.events == nil {
		return
	}
	if err := e.events.Record(ctx, eventType, payload); err != nil {
		e.logger.Error("failed to record event", "event_type", eventType, "error", err)
	}
}

func clientEmail(actor Actor) string {
	if actor.isClient() {
		return actor.Email
	}
	return ""
}

// isUUID accepts canonical RFC 4122 identifiers, versions 1 through 5.
func isUUID(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil || len(s) != 36 {
		return false
	}
	if u.Variant() != uuid.RFC4122 {
		return false
	}
	v := u.Version()
	return v >= 1 && v <= 5
}
