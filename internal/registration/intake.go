package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"regportal/internal/model"
	"regportal/internal/repo"
	"regportal/pkg/validator"
)

// Submission is one attendee's public registration form.
type Submission struct {
	Name        string `json:"name" validate:"required,max=255"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
	Designation string `json:"designation" validate:"required,max=255"`
	SectorID    int    `json:"sector_id" validate:"required,positive"`
	UnitID      int    `json:"unit_id" validate:"required,positive"`
}

type IntakeStore interface {
	AllocatorStore
	GetSetting(ctx context.Context, key string) (string, error)
	GetUnit(ctx context.Context, id int) (*model.Unit, error)
	GetRegistrationByMobile(ctx context.Context, mobile string) (*model.Registration, error)
}

type IntakeService struct {
	store     IntakeStore
	allocator *Allocator
	log       *zerolog.Logger
}

func NewIntakeService(store IntakeStore, allocator *Allocator, log *zerolog.Logger) *IntakeService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &IntakeService{store: store, allocator: allocator, log: log}
}

// Open reports ErrRegistrationClosed unless registration_status is "open".
// A missing setting counts as closed.
func (s *IntakeService) Open(ctx context.Context) error {
	status, err := s.store.GetSetting(ctx, model.SettingRegistrationStatus)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("failed to read registration status: %w", err)
	}
	if status != model.RegistrationOpen {
		return ErrRegistrationClosed
	}
	return nil
}

// Submit checks, in order, that registration is open, that the form is
// complete and that the mobile is unused, then allocates and stores the row.
func (s *IntakeService) Submit(ctx context.Context, sub Submission) (*model.Registration, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	sub.Name = strings.TrimSpace(sub.Name)
	sub.Mobile = strings.TrimSpace(sub.Mobile)
	sub.Designation = strings.TrimSpace(sub.Designation)
	if err := validator.Validate(ctx, sub); err != nil {
		return nil, asValidationError(err)
	}

	unit, err := s.store.GetUnit(ctx, sub.UnitID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &ValidationError{Field: "unit_id", Reason: "unknown unit"}
		}
		return nil, fmt.Errorf("failed to load unit %d: %w", sub.UnitID, err)
	}
	if unit.SectorID != sub.SectorID {
		return nil, &ValidationError{Field: "unit_id", Reason: "unit does not belong to the selected sector"}
	}

	if _, found, err := s.CheckMobile(ctx, sub.Mobile); err != nil {
		return nil, err
	} else if found {
		return nil, ErrDuplicateMobile
	}

	reg := &model.Registration{
		Name:        sub.Name,
		Mobile:      sub.Mobile,
		Designation: sub.Designation,
		SectorID:    sub.SectorID,
		UnitID:      sub.UnitID,
	}
	if err := s.allocator.Allocate(ctx, reg); err != nil {
		return nil, err
	}

	reg.Sector = unit.Sector
	reg.Unit = &model.Unit{ID: unit.ID, Name: unit.Name, SectorID: unit.SectorID, CreatedAt: unit.CreatedAt}

	s.log.Info().
		Str("reg_id", reg.RegID).
		Int("registration_id", reg.ID).
		Int("sector_id", reg.SectorID).
		Msg("registration created")
	return reg, nil
}

// CheckMobile looks up an existing registration by mobile number.
func (s *IntakeService) CheckMobile(ctx context.Context, mobile string) (*model.Registration, bool, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, false, &ValidationError{Field: "mobile", Reason: "required"}
	}

	reg, err := s.store.GetRegistrationByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up mobile: %w", err)
	}
	return reg, true, nil
}

func asValidationError(err error) error {
	var verr *validator.Error
	if errors.As(err, &verr) {
		return &ValidationError{Field: verr.Field, Reason: verr.Message}
	}
	return &ValidationError{Field: "form", Reason: err.Error()}
}
