package service

import (
	"github.com/wb-go/wbf/ginext"

	"regportal/cmd/middleware"
	"regportal/internal/auth"
	"regportal/internal/dto"
)

// sectorIdentity returns the signed-in sector admin. Routes using it sit
// behind RequireRole, so a missing identity means a wiring mistake.
func (s *service) sectorIdentity(ctx *ginext.Context) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok || id.Role != auth.RoleSector || id.SectorID <= 0 {
		dto.UnauthorizedError(ctx)
		return auth.Identity{}, false
	}
	return id, true
}

func (s *service) SectorStats(ctx *ginext.Context) {
	id, ok := s.sectorIdentity(ctx)
	if !ok {
		return
	}
	stats, err := s.repo.SectorStats(ctx.Request.Context(), id.SectorID)
	if err != nil {
		s.storeError(ctx, err, "Stats")
		return
	}
	dto.SuccessResponse(ctx, stats)
}

func (s *service) SectorRegistrations(ctx *ginext.Context) {
	id, ok := s.sectorIdentity(ctx)
	if !ok {
		return
	}
	filter, ok := s.registrationFilter(ctx)
	if !ok {
		return
	}
	filter.SectorID = id.SectorID

	regs, err := s.repo.ListRegistrations(ctx.Request.Context(), filter)
	if err != nil {
		s.storeError(ctx, err, "Registrations")
		return
	}
	dto.SuccessResponse(ctx, regs)
}

func (s *service) SectorUnits(ctx *ginext.Context) {
	id, ok := s.sectorIdentity(ctx)
	if !ok {
		return
	}
	units, err := s.repo.ListUnitsBySector(ctx.Request.Context(), id.SectorID)
	if err != nil {
		s.storeError(ctx, err, "Units")
		return
	}
	dto.SuccessResponse(ctx, units)
}
