package service

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"regportal/internal/dto"
	"regportal/internal/model"
)

func (s *service) ListSectors(ctx *ginext.Context) {
	sectors, err := s.repo.ListSectors(ctx.Request.Context())
	if err != nil {
		s.storeError(ctx, err, "Sectors")
		return
	}
	dto.SuccessResponse(ctx, sectors)
}

func (s *service) CreateSector(ctx *ginext.Context) {
	var req dto.SectorRequest
	if !bind(ctx, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	sector := &model.Sector{Name: name, Slug: slugify(name)}
	if err := s.repo.CreateSector(ctx.Request.Context(), sector); err != nil {
		s.storeError(ctx, err, "Sector")
		return
	}
	s.log.Info().Int("sector_id", sector.ID).Str("slug", sector.Slug).Msg("sector created")
	dto.SuccessCreatedResponse(ctx, sector)
}

func (s *service) UpdateSector(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req dto.SectorRequest
	if !bind(ctx, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	sector := &model.Sector{ID: id, Name: name, Slug: slugify(name)}
	if err := s.repo.UpdateSector(ctx.Request.Context(), sector); err != nil {
		s.storeError(ctx, err, "Sector")
		return
	}
	dto.SuccessResponse(ctx, sector)
}

func (s *service) DeleteSector(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteSector(ctx.Request.Context(), id); err != nil {
		s.storeError(ctx, err, "Sector")
		return
	}
	s.log.Info().Int("sector_id", id).Msg("sector deleted")
	dto.SuccessResponse(ctx, nil)
}

func (s *service) ListUnits(ctx *ginext.Context) {
	sectorID, ok := queryID(ctx, "sector_id")
	if !ok {
		return
	}

	var (
		units []model.Unit
		err   error
	)
	if sectorID > 0 {
		units, err = s.repo.ListUnitsBySector(ctx.Request.Context(), sectorID)
	} else {
		units, err = s.repo.ListUnits(ctx.Request.Context())
	}
	if err != nil {
		s.storeError(ctx, err, "Units")
		return
	}
	dto.SuccessResponse(ctx, units)
}

func (s *service) CreateUnit(ctx *ginext.Context) {
	var req dto.CreateUnitRequest
	if !bind(ctx, &req) {
		return
	}
	unit := &model.Unit{Name: strings.TrimSpace(req.Name), SectorID: req.SectorID}
	if err := s.repo.CreateUnit(ctx.Request.Context(), unit); err != nil {
		s.storeError(ctx, err, "Unit")
		return
	}
	dto.SuccessCreatedResponse(ctx, unit)
}

func (s *service) UpdateUnit(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateUnitRequest
	if !bind(ctx, &req) {
		return
	}
	unit, err := s.repo.UpdateUnit(ctx.Request.Context(), id, strings.TrimSpace(req.Name))
	if err != nil {
		s.storeError(ctx, err, "Unit")
		return
	}
	dto.SuccessResponse(ctx, unit)
}

func (s *service) DeleteUnit(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteUnit(ctx.Request.Context(), id); err != nil {
		s.storeError(ctx, err, "Unit")
		return
	}
	dto.SuccessResponse(ctx, nil)
}
