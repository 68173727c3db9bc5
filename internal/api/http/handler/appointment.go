package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/service/scheduling"
)

type AppointmentHandler struct {
	svc scheduling.Service
}

func NewAppointmentHandler(svc scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

func (h *AppointmentHandler) loc() *time.Location {
	return h.svc.Options().Location
}

// listRequest reads the filters shared by every appointment listing.
func (h *AppointmentHandler) listRequest(c fiber.Ctx) (scheduling.ListRequest, error) {
	var (
		req scheduling.ListRequest
		err error
	)
	if req.PatientID, err = queryID(c, "patient_id"); err != nil {
		return req, err
	}
	if req.ProfessionalID, err = queryID(c, "professional_id"); err != nil {
		return req, err
	}
	if req.Date, err = queryDate(c, "date", h.loc()); err != nil {
		return req, err
	}
	if req.From, err = queryTime(c, "from", h.loc(), false); err != nil {
		return req, err
	}
	if req.To, err = queryTime(c, "to", h.loc(), true); err != nil {
		return req, err
	}
	if req.Recurring, err = queryBool(c, "recurring"); err != nil {
		return req, err
	}
	req.Page, req.PerPage = paging(c)
	return req, nil
}

// GET /appointments
func (h *AppointmentHandler) List(c fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return fail(c, err)
	}
	items, err := h.svc.List(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /appointments/today
func (h *AppointmentHandler) Today(c fiber.Ctx) error {
	items, err := h.svc.Today(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /appointments/upcoming?days=7
func (h *AppointmentHandler) Upcoming(c fiber.Ctx) error {
	items, err := h.svc.Upcoming(c.Context(), fiber.Query[int](c, "days"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /appointments/recurring
func (h *AppointmentHandler) Recurring(c fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return fail(c, err)
	}
	items, err := h.svc.Recurring(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /appointments/statistics?start=&end=
func (h *AppointmentHandler) Statistics(c fiber.Ctx) error {
	start, end, err := period(c, h.loc())
	if err != nil {
		return fail(c, err)
	}
	stats, err := h.svc.Statistics(c.Context(), start, end)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}

// GET /appointments/weekdays
func (h *AppointmentHandler) Weekdays(c fiber.Ctx) error {
	return ok(c, scheduling.Weekdays())
}

// GET /appointments/:id
func (h *AppointmentHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	a, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, a)
}

type createAppointmentBody struct {
	PatientID      uuid.UUID `json:"patient_id" validate:"required"`
	ProfessionalID uuid.UUID `json:"professional_id" validate:"required"`
	ScheduledAt    time.Time `json:"scheduled_at" validate:"required"`
	IsRecurring    bool      `json:"is_recurring"`
	Weekday        string    `json:"weekday" validate:"max=16"`
}

// POST /appointments
func (h *AppointmentHandler) Create(c fiber.Ctx) error {
	var body createAppointmentBody
	if err := bindJSON(c, &body); err != nil {
		return fail(c, err)
	}
	a, err := h.svc.Create(c.Context(), scheduling.CreateRequest{
		PatientID:      body.PatientID,
		ProfessionalID: body.ProfessionalID,
		ScheduledAt:    body.ScheduledAt,
		IsRecurring:    body.IsRecurring,
		Weekday:        body.Weekday,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, a)
}

type updateAppointmentBody struct {
	PatientID      *uuid.UUID `json:"patient_id"`
	ProfessionalID *uuid.UUID `json:"professional_id"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	IsRecurring    *bool      `json:"is_recurring"`
	Weekday        *string    `json:"weekday" validate:"omitempty,max=16"`
}

// PATCH /appointments/:id
func (h *AppointmentHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body updateAppointmentBody
	if err := bindJSON(c, &body); err != nil {
		return fail(c, err)
	}
	a, err := h.svc.Update(c.Context(), id, scheduling.UpdateRequest{
		PatientID:      body.PatientID,
		ProfessionalID: body.ProfessionalID,
		ScheduledAt:    body.ScheduledAt,
		IsRecurring:    body.IsRecurring,
		Weekday:        body.Weekday,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, a)
}

// DELETE /appointments/:id
func (h *AppointmentHandler) Cancel(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.Cancel(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return noContent(c)
}

// PUT /appointments/:id/confirm
func (h *AppointmentHandler) Confirm(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	v, err := h.svc.Confirm(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, v)
}

// ListByPatient serves GET /patients/:id/appointments.
func (h *AppointmentHandler) ListByPatient(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	req, err := h.listRequest(c)
	if err != nil {
		return fail(c, err)
	}
	items, err := h.svc.ListByPatient(c.Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// ListByProfessional serves GET /professionals/:id/appointments.
func (h *AppointmentHandler) ListByProfessional(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	req, err := h.listRequest(c)
	if err != nil {
		return fail(c, err)
	}
	items, err := h.svc.ListByProfessional(c.Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}
