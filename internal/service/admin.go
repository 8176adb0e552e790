package service

import (
	"errors"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"regportal/internal/dto"
	"regportal/internal/registration"
	"regportal/internal/repo"
)

const dateLayout = "2006-01-02"

func (s *service) AdminStats(ctx *ginext.Context) {
	stats, err := s.repo.AdminStats(ctx.Request.Context(), s.startOfDay(s.now()))
	if err != nil {
		s.storeError(ctx, err, "Stats")
		return
	}
	dto.SuccessResponse(ctx, stats)
}

// registrationFilter reads the list filters shared by the admin and sector
// registration views.
func (s *service) registrationFilter(ctx *ginext.Context) (repo.RegistrationFilter, bool) {
	f := repo.RegistrationFilter{
		Search:      strings.TrimSpace(ctx.Query("search")),
		Designation: strings.TrimSpace(ctx.Query("designation")),
	}

	var ok bool
	if f.SectorID, ok = queryID(ctx, "sector_id"); !ok {
		return f, false
	}
	if f.UnitID, ok = queryID(ctx, "unit_id"); !ok {
		return f, false
	}

	if raw := strings.TrimSpace(ctx.Query("date")); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, s.now().Location())
		if err != nil {
			dto.FieldBadFormatError(ctx, "date")
			return f, false
		}
		f.Date = &day
	}
	return f, true
}

func (s *service) ListRegistrations(ctx *ginext.Context) {
	filter, ok := s.registrationFilter(ctx)
	if !ok {
		return
	}
	regs, err := s.repo.ListRegistrations(ctx.Request.Context(), filter)
	if err != nil {
		s.storeError(ctx, err, "Registrations")
		return
	}
	dto.SuccessResponse(ctx, regs)
}

func (s *service) DeleteRegistration(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteRegistration(ctx.Request.Context(), id); err != nil {
		s.storeError(ctx, err, "Registration")
		return
	}
	s.log.Info().Int("registration_id", id).Msg("registration deleted")
	dto.SuccessResponse(ctx, nil)
}

func (s *service) Admit(ctx *ginext.Context) {
	var req dto.AdmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request body")
		return
	}

	var (
		res *registration.AdmitResult
		err error
	)
	rctx := ctx.Request.Context()
	if strings.TrimSpace(req.RegID) != "" {
		res, err = s.admission.Admit(rctx, req.RegID)
	} else {
		res, err = s.admission.AdmitScan(rctx, req.Scan)
	}
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrNotFound):
			dto.RegistrationNotFoundError(ctx)
		case errors.Is(err, registration.ErrUnrecognizedScan):
			dto.BadResponseError(ctx, dto.UnrecognizedScan, "Scanned code is not a registration ticket")
		case s.validationError(ctx, err):
		default:
			s.log.Error().Err(err).Msg("failed to admit registration")
			dto.InternalServerError(ctx)
		}
		return
	}

	resp := dto.AdmitResponse{
		Outcome:       string(res.Outcome),
		AdmissionTime: res.Registration.AdmissionTime,
		Registration:  res.Registration,
	}
	if res.Outcome == registration.OutcomeAlreadyAdmitted {
		dto.AlreadyAdmittedError(ctx, resp)
		return
	}
	dto.SuccessResponse(ctx, resp)
}
