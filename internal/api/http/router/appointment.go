package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/internal/api/http/handler"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
)

func (r *Router) registerAppointmentRoutes(api fiber.Router, ah *handler.AppointmentHandler, requirePerm permFunc) {
	read := requirePerm(authorize.ResourceAppointment, authorize.ActionRead)
	write := requirePerm(authorize.ResourceAppointment, authorize.ActionWrite)

	appts := api.Group("/appointments")

	appts.Get("/", read, ah.List)
	appts.Post("/", write, ah.Create)
	appts.Get("/today", read, ah.Today)
	appts.Get("/upcoming", read, ah.Upcoming)
	appts.Get("/recurring", read, ah.Recurring)
	appts.Get("/weekdays", read, ah.Weekdays)
	appts.Get("/statistics", requirePerm(authorize.ResourceReport, authorize.ActionRead), ah.Statistics)

	a := appts.Group("/:id")
	a.Get("/", read, ah.Get)
	a.Patch("/", write, ah.Update)
	a.Delete("/", write, ah.Cancel)
	a.Put("/confirm", requirePerm(authorize.ResourceVisit, authorize.ActionConfirm), ah.Confirm)
}
