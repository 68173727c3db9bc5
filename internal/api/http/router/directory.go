package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/internal/api/http/handler"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
)

func (r *Router) registerDirectoryRoutes(api fiber.Router, dh *handler.DirectoryHandler, ah *handler.AppointmentHandler, requirePerm permFunc) {
	read := requirePerm(authorize.ResourceDirectory, authorize.ActionRead)
	readAppts := requirePerm(authorize.ResourceAppointment, authorize.ActionRead)

	patients := api.Group("/patients")
	patients.Get("/", read, dh.ListPatients)
	patients.Get("/:id", read, dh.GetPatient)
	patients.Get("/:id/appointments", readAppts, ah.ListByPatient)

	professionals := api.Group("/professionals")
	professionals.Get("/", read, dh.ListProfessionals)
	professionals.Get("/:id", read, dh.GetProfessional)
	professionals.Get("/:id/appointments", readAppts, ah.ListByProfessional)
}
