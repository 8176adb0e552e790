package service

import (
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"regportal/cmd/middleware"
	"regportal/internal/auth"
	"regportal/internal/dto"
)

func (s *service) AdminLogin(ctx *ginext.Context) {
	s.login(ctx, auth.RoleAdmin)
}

func (s *service) SectorLogin(ctx *ginext.Context) {
	s.login(ctx, auth.RoleSector)
}

func (s *service) login(ctx *ginext.Context, role auth.Role) {
	var req dto.LoginRequest
	if !bind(ctx, &req) {
		return
	}

	var (
		id    auth.Identity
		token string
		err   error
	)
	if role == auth.RoleSector {
		id, token, err = s.auth.LoginSector(ctx.Request.Context(), req.Username, req.Password)
	} else {
		id, token, err = s.auth.LoginAdmin(ctx.Request.Context(), req.Username, req.Password)
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.log.Warn().Str("username", req.Username).Str("role", string(role)).Msg("login rejected")
			dto.ErrorResponse(ctx, http.StatusUnauthorized, dto.Unauthorized, "Invalid username or password")
			return
		}
		s.log.Error().Err(err).Str("role", string(role)).Msg("login failed")
		dto.InternalServerError(ctx)
		return
	}

	s.setSessionCookie(ctx, middleware.CookieFor(role), token, int(s.auth.Tokens().TTL().Seconds()))
	dto.SuccessResponse(ctx, dto.LoginResponse{
		Username:   id.Username,
		Role:       string(id.Role),
		SectorID:   id.SectorID,
		SectorName: id.SectorName,
		Token:      token,
	})
}

func (s *service) Logout(ctx *ginext.Context) {
	s.setSessionCookie(ctx, middleware.AdminCookie, "", -1)
	s.setSessionCookie(ctx, middleware.SectorCookie, "", -1)
	dto.SuccessResponse(ctx, nil)
}

func (s *service) setSessionCookie(ctx *ginext.Context, name, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(name, value, maxAge, "/", "", s.cookieSecure, true)
}
