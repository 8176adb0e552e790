package service

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"regportal/internal/auth"
	"regportal/internal/dto"
	"regportal/internal/model"
	"regportal/internal/repo"
	"regportal/pkg/validator"
)

func (s *service) GetAdminSettings(ctx *ginext.Context) {
	s.GetSettings(ctx)
}

func (s *service) UpdateSettings(ctx *ginext.Context) {
	var values map[string]string
	if err := ctx.ShouldBindJSON(&values); err != nil || len(values) == 0 {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Settings must be a non-empty object of strings")
		return
	}
	for key := range values {
		if strings.TrimSpace(key) == "" {
			dto.FieldIncorrectError(ctx, "key", "must not be empty")
			return
		}
	}
	if status, ok := values[model.SettingRegistrationStatus]; ok {
		if err := validator.Var(model.SettingRegistrationStatus, status, "regstatus"); err != nil {
			dto.FieldIncorrectError(ctx, model.SettingRegistrationStatus, "must be open or closed")
			return
		}
	}

	rctx := ctx.Request.Context()
	if err := s.repo.UpsertSettings(rctx, values); err != nil {
		s.storeError(ctx, err, "Settings")
		return
	}
	if status, ok := values[model.SettingRegistrationStatus]; ok {
		s.log.Info().Str("registration_status", status).Msg("registration status changed")
	}

	settings, err := s.repo.ListSettings(rctx)
	if err != nil {
		s.storeError(ctx, err, "Settings")
		return
	}
	dto.SuccessResponse(ctx, settings)
}

func (s *service) ListSectorAdmins(ctx *ginext.Context) {
	admins, err := s.repo.ListSectorAdmins(ctx.Request.Context())
	if err != nil {
		s.storeError(ctx, err, "Sector admins")
		return
	}
	dto.SuccessResponse(ctx, admins)
}

func (s *service) CreateSectorAdmin(ctx *ginext.Context) {
	var req dto.CreateSectorAdminRequest
	if !bind(ctx, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash sector admin password")
		dto.InternalServerError(ctx)
		return
	}

	sa := &model.SectorAdmin{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		SectorID:     req.SectorID,
	}
	if err := s.repo.CreateSectorAdmin(ctx.Request.Context(), sa); err != nil {
		s.storeError(ctx, err, "Sector admin")
		return
	}
	s.log.Info().Int("sector_id", sa.SectorID).Str("username", sa.Username).Msg("sector admin created")
	dto.SuccessCreatedResponse(ctx, sa)
}

func (s *service) UpdateSectorAdmin(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateSectorAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request body")
		return
	}

	var upd repo.SectorAdminUpdate
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			dto.FieldIncorrectError(ctx, "username", validator.ErrFieldRequired)
			return
		}
		upd.Username = &name
	}
	if req.Password != nil && *req.Password != "" {
		if err := validator.Var("password", *req.Password, "min=6"); err != nil {
			dto.FieldIncorrectError(ctx, "password", validator.ErrFieldBelowMinLen)
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to hash sector admin password")
			dto.InternalServerError(ctx)
			return
		}
		upd.PasswordHash = &hash
	}
	if req.SectorID != nil {
		if *req.SectorID <= 0 {
			dto.FieldIncorrectError(ctx, "sector_id", validator.ErrNotPositive)
			return
		}
		upd.SectorID = req.SectorID
	}

	sa, err := s.repo.UpdateSectorAdmin(ctx.Request.Context(), id, upd)
	if err != nil {
		s.storeError(ctx, err, "Sector admin")
		return
	}
	dto.SuccessResponse(ctx, sa)
}

func (s *service) DeleteSectorAdmin(ctx *ginext.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteSectorAdmin(ctx.Request.Context(), id); err != nil {
		s.storeError(ctx, err, "Sector admin")
		return
	}
	dto.SuccessResponse(ctx, nil)
}
