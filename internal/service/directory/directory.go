// Package directory gives read-only access to patients and professionals.
// Their records are maintained elsewhere; scheduling only needs to look them up.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/repo"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ListRequest struct {
	Search  string
	Page    int
	PerPage int
}

func (r ListRequest) filter() repo.DirectoryFilter {
	page, perPage := r.Page, r.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return repo.DirectoryFilter{Search: r.Search, Limit: perPage, Offset: (page - 1) * perPage}
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type PatientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Patient, error)
	List(ctx context.Context, f repo.DirectoryFilter) ([]*repo.Patient, error)
}

type ProfessionalStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
	List(ctx context.Context, f repo.DirectoryFilter) ([]*repo.Professional, error)
}

type Service interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*repo.Patient, error)
	ListPatients(ctx context.Context, req ListRequest) ([]*repo.Patient, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)

	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
	ListProfessionals(ctx context.Context, req ListRequest) ([]*repo.Professional, error)
	ProfessionalExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type directoryService struct {
	patients      PatientStore
	professionals ProfessionalStore
}

func New(patients PatientStore, professionals ProfessionalStore) Service {
	return &directoryService{patients: patients, professionals: professionals}
}

func (s *directoryService) GetPatient(ctx context.Context, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (s *directoryService) ListPatients(ctx context.Context, req ListRequest) ([]*repo.Patient, error) {
	items, err := s.patients.List(ctx, req.filter())
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return items, nil
}

func (s *directoryService) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.GetPatient(ctx, id)
	return exists(err)
}

func (s *directoryService) GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error) {
	p, err := s.professionals.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfessionalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get professional: %w", err)
	}
	return p, nil
}

func (s *directoryService) ListProfessionals(ctx context.Context, req ListRequest) ([]*repo.Professional, error) {
	items, err := s.professionals.List(ctx, req.filter())
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	return items, nil
}

func (s *directoryService) ProfessionalExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.GetProfessional(ctx, id)
	return exists(err)
}

func exists(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrProfessionalNotFound):
		return false, nil
	default:
		return false, err
	}
}
