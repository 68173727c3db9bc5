package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/internal/api/http/handler"
	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
)

func (r *Router) registerVisitRoutes(api fiber.Router, vh *handler.VisitHandler, requirePerm permFunc) {
	read := requirePerm(authorize.ResourceVisit, authorize.ActionRead)
	write := requirePerm(authorize.ResourceVisit, authorize.ActionWrite)
	confirm := requirePerm(authorize.ResourceVisit, authorize.ActionConfirm)
	report := requirePerm(authorize.ResourceReport, authorize.ActionRead)

	visits := api.Group("/visits")

	visits.Get("/", read, vh.List)
	visits.Post("/", write, vh.Create)
	visits.Post("/appointment/:appointment_id", write, vh.CreateFromAppointment)
	visits.Get("/overdue", read, vh.Overdue)
	visits.Post("/process-overdue", requirePerm(authorize.ResourceJob, authorize.ActionExecute), vh.ProcessOverdue(r.countOverdue))
	visits.Get("/statistics", report, vh.Statistics)
	visits.Get("/report", report, vh.Report)
	visits.Get("/professionals/:professional_id/report", report, vh.ProfessionalReport)

	v := visits.Group("/:id")
	v.Get("/", read, vh.Get)
	v.Patch("/", write, vh.Update)
	v.Delete("/", write, vh.Delete)
	v.Put("/confirm", confirm, vh.Confirm)
	v.Put("/cancel", confirm, vh.Cancel)
}

func (r *Router) countOverdue(c fiber.Ctx, entries []visit.OverdueEntry) {
	if r.p.Metrics != nil {
		r.p.Metrics.OverdueProcessed(c.Context(), len(entries), "http")
	}
}
