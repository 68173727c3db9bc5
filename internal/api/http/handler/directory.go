package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/internal/service/directory"
)

// DirectoryHandler exposes the read-only patient and professional lookups.
type DirectoryHandler struct {
	svc directory.Service
}

func NewDirectoryHandler(svc directory.Service) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

func directoryListRequest(c fiber.Ctx) directory.ListRequest {
	page, perPage := paging(c)
	return directory.ListRequest{Search: c.Query("search"), Page: page, PerPage: perPage}
}

// GET /patients
func (h *DirectoryHandler) ListPatients(c fiber.Ctx) error {
	items, err := h.svc.ListPatients(c.Context(), directoryListRequest(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /patients/:id
func (h *DirectoryHandler) GetPatient(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.svc.GetPatient(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, p)
}

// GET /professionals
func (h *DirectoryHandler) ListProfessionals(c fiber.Ctx) error {
	items, err := h.svc.ListProfessionals(c.Context(), directoryListRequest(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, items)
}

// GET /professionals/:id
func (h *DirectoryHandler) GetProfessional(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.svc.GetProfessional(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, p)
}
