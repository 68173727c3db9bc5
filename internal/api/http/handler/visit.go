package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/service/visit"
)

type VisitHandler struct {
	svc visit.Service
	loc *time.Location
}

func NewVisitHandler(svc visit.Service, loc *time.Location) *VisitHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &VisitHandler{svc: svc, loc: loc}
}

// OverdueRunner receives the processed entries, e.g. to count them.
type OverdueRunner func(c fiber.Ctx, entries []visit.OverdueEntry)

// GET /visits
func (h *VisitHandler) List(c fiber.Ctx) error {
	var (
		req visit.ListRequest
		err error
	)
	if req.AppointmentID, err = queryID(c, "appointment_id"); err != nil {
		return fail(c, err)
	}
	if req.ProfessionalID, err = queryID(c, "professional_id"); err != nil {
		return fail(c, err)
	}
	if req.PatientID, err = queryID(c, "patient_id"); err != nil {
		return fail(c, err)
	}
	if req.Date, err = queryDate(c, "date", h.loc); err != nil {
		return fail(c, err)
	}
	if req.From, err = queryTime(c, "from", h.loc, false); err != nil {
		return fail(c, err)
	}
	if req.To, err = queryTime(c, "to", h.loc, true); err != nil {
		return fail(c, err)
	}
	if req.Confirmed, err = queryBool(c, "confirmed"); err != nil {
		return fail(c, err)
	}
	overdue, err := queryBool(c, "overdue")
	if err != nil {
		return fail(c, err)
	}
	req.Overdue = overdue != nil && *overdue
	req.Page, req.PerPage = paging(c)

	items, err := h.svc.List(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /visits/overdue
func (h *VisitHandler) Overdue(c fiber.Ctx) error {
	page, perPage := paging(c)
	items, err := h.svc.List(c.Context(), visit.ListRequest{Overdue: true, Page: page, PerPage: perPage})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// ProcessOverdue serves POST /visits/process-overdue. done, when set, sees
// the processed entries before the response is written.
func (h *VisitHandler) ProcessOverdue(done OverdueRunner) fiber.Handler {
	return func(c fiber.Ctx) error {
		entries, err := h.svc.ProcessOverdue(c.Context())
		if err != nil {
			return fail(c, err)
		}
		if done != nil {
			done(c, entries)
		}
		return ok(c, fiber.Map{"processed": len(entries), "entries": entries})
	}
}

// GET /visits/statistics?start=&end=
func (h *VisitHandler) Statistics(c fiber.Ctx) error {
	start, end, err := period(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	stats, err := h.svc.Statistics(c.Context(), start, end)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}

// GET /visits/report?start=&end=
func (h *VisitHandler) Report(c fiber.Ctx) error {
	start, end, err := period(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	r, err := h.svc.Report(c.Context(), start, end)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, r)
}

// GET /visits/professionals/:professional_id/report?start=&end=
func (h *VisitHandler) ProfessionalReport(c fiber.Ctx) error {
	id, err := paramID(c, "professional_id")
	if err != nil {
		return fail(c, err)
	}
	start, end, err := period(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	r, err := h.svc.ProfessionalReport(c.Context(), id, start, end)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, r)
}

// GET /visits/:id
func (h *VisitHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	v, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, v)
}

type createVisitBody struct {
	AppointmentID uuid.UUID  `json:"appointment_id" validate:"required"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	Confirmed     *bool      `json:"confirmed"`
}

// POST /visits
func (h *VisitHandler) Create(c fiber.Ctx) error {
	var body createVisitBody
	if err := bindJSON(c, &body); err != nil {
		return fail(c, err)
	}
	v, err := h.svc.Create(c.Context(), visit.CreateRequest{
		AppointmentID: body.AppointmentID,
		ScheduledAt:   body.ScheduledAt,
		Confirmed:     body.Confirmed,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, v)
}

// POST /visits/appointment/:appointment_id
func (h *VisitHandler) CreateFromAppointment(c fiber.Ctx) error {
	id, err := paramID(c, "appointment_id")
	if err != nil {
		return fail(c, err)
	}
	v, err := h.svc.CreateFromAppointment(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return created(c, v)
}

type updateVisitBody struct {
	ScheduledAt *time.Time `json:"scheduled_at" validate:"required"`
}

// PATCH /visits/:id
func (h *VisitHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body updateVisitBody
	if err := bindJSON(c, &body); err != nil {
		return fail(c, err)
	}
	v, err := h.svc.Update(c.Context(), id, visit.UpdateRequest{ScheduledAt: body.ScheduledAt})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, v)
}

// PUT /visits/:id/confirm
func (h *VisitHandler) Confirm(c fiber.Ctx) error {
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

// PUT /visits/:id/cancel
func (h *VisitHandler) Cancel(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	v, err := h.svc.Cancel(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, v)
}

// DELETE /visits/:id
func (h *VisitHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return noContent(c)
}
