package service

import (
	"errors"

	"github.com/wb-go/wbf/ginext"

	"regportal/internal/dto"
	"regportal/internal/registration"
)

func (s *service) GetSettings(ctx *ginext.Context) {
	settings, err := s.repo.ListSettings(ctx.Request.Context())
	if err != nil {
		s.storeError(ctx, err, "Settings")
		return
	}
	dto.SuccessResponse(ctx, settings)
}

func (s *service) GetSectors(ctx *ginext.Context) {
	sectors, err := s.repo.ListSectors(ctx.Request.Context())
	if err != nil {
		s.storeError(ctx, err, "Sectors")
		return
	}
	for i := range sectors {
		sectors[i].RegistrationCount = 0
	}
	dto.SuccessResponse(ctx, sectors)
}

func (s *service) CheckMobile(ctx *ginext.Context) {
	reg, exists, err := s.intake.CheckMobile(ctx.Request.Context(), ctx.Query("mobile"))
	if err != nil {
		if s.validationError(ctx, err) {
			return
		}
		s.log.Error().Err(err).Msg("failed to check mobile")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.CheckMobileResponse{Exists: exists, Registration: reg})
}

func (s *service) Register(ctx *ginext.Context) {
	rctx := ctx.Request.Context()

	var req dto.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		// A closed registration is reported even for a broken body.
		switch oerr := s.intake.Open(rctx); {
		case errors.Is(oerr, registration.ErrRegistrationClosed):
			dto.RegistrationClosedError(ctx)
		case oerr != nil:
			s.log.Error().Err(oerr).Msg("failed to read registration status")
			dto.InternalServerError(ctx)
		default:
			s.log.Debug().Err(err).Msg("failed to parse registration request")
			dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request body")
		}
		return
	}

	reg, err := s.intake.Submit(rctx, registration.Submission{
		Name:        req.Name,
		Mobile:      req.Mobile,
		Designation: req.Designation,
		SectorID:    int(req.SectorID),
		UnitID:      int(req.UnitID),
	})
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrRegistrationClosed):
			dto.RegistrationClosedError(ctx)
		case errors.Is(err, registration.ErrDuplicateMobile):
			existing, _, lerr := s.intake.CheckMobile(rctx, req.Mobile)
			if lerr != nil {
				s.log.Warn().Err(lerr).Msg("failed to load existing registration for duplicate mobile")
			}
			dto.DuplicateMobileError(ctx, existing)
		case s.validationError(ctx, err):
		case errors.Is(err, registration.ErrAllocationExhausted):
			s.log.Error().Err(err).Msg("registration id allocation exhausted")
			dto.InternalServerError(ctx)
		default:
			s.log.Error().Err(err).Msg("failed to create registration")
			dto.InternalServerError(ctx)
		}
		return
	}

	dto.SuccessCreatedResponse(ctx, reg)
}
