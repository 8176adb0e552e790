package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"

	"regportal/cmd/middleware"
	"regportal/internal/auth"
	"regportal/internal/dto"
	"regportal/internal/exporter"
	"regportal/pkg/validator"
)

func (s *service) RequestExport(ctx *ginext.Context) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		dto.UnauthorizedError(ctx)
		return
	}

	var req dto.ExportRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request body")
			return
		}
	}
	if req.SectorID < 0 || req.UnitID < 0 {
		dto.FieldIncorrectError(ctx, "sector_id", validator.ErrNotPositive)
		return
	}
	if id.Role == auth.RoleSector {
		req.SectorID = id.SectorID
	}

	jobID := uuid.New()
	now := s.now()
	msg := dto.ExportJobMessage{
		JobID:       jobID.String(),
		File:        exporter.FileName(req.SectorID, now, strings.ReplaceAll(jobID.String(), "-", "")[:8]),
		SectorID:    req.SectorID,
		UnitID:      req.UnitID,
		Designation: strings.TrimSpace(req.Designation),
		RequestedBy: id.Username,
		RequestedAt: now.UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal export job")
		dto.InternalServerError(ctx)
		return
	}
	if err := s.exports.Publish(ctx.Request.Context(), body); err != nil {
		s.log.Error().Err(err).Str("job_id", msg.JobID).Msg("failed to enqueue export job")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("job_id", msg.JobID).Str("file", msg.File).Str("requested_by", msg.RequestedBy).Msg("export queued")
	dto.AcceptedResponse(ctx, dto.ExportAcceptedResponse{JobID: msg.JobID, File: msg.File})
}

func (s *service) DownloadExport(ctx *ginext.Context) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		dto.UnauthorizedError(ctx)
		return
	}

	name := ctx.Param("file")
	sectorID, valid := exporter.ParseFileName(name)
	if !valid {
		dto.FieldBadFormatError(ctx, "file")
		return
	}
	if id.Role == auth.RoleSector && sectorID != id.SectorID {
		dto.ForbiddenError(ctx)
		return
	}

	path := filepath.Join(s.exportsDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			dto.ErrorResponse(ctx, http.StatusNotFound, dto.ExportNotReady, "Export is not ready yet")
			return
		}
		s.log.Error().Err(err).Str("file", name).Msg("failed to stat export")
		dto.InternalServerError(ctx)
		return
	}
	ctx.FileAttachment(path, name)
}
