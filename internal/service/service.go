package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"regportal/internal/auth"
	"regportal/internal/dto"
	"regportal/internal/registration"
	"regportal/internal/repo"
	"regportal/pkg/validator"
)

type Service interface {
	GetSettings(ctx *ginext.Context)
	GetSectors(ctx *ginext.Context)
	CheckMobile(ctx *ginext.Context)
	Register(ctx *ginext.Context)

	AdminLogin(ctx *ginext.Context)
	SectorLogin(ctx *ginext.Context)
	Logout(ctx *ginext.Context)

	AdminStats(ctx *ginext.Context)
	ListRegistrations(ctx *ginext.Context)
	DeleteRegistration(ctx *ginext.Context)
	Admit(ctx *ginext.Context)

	ListSectors(ctx *ginext.Context)
	CreateSector(ctx *ginext.Context)
	UpdateSector(ctx *ginext.Context)
	DeleteSector(ctx *ginext.Context)
	ListUnits(ctx *ginext.Context)
	CreateUnit(ctx *ginext.Context)
	UpdateUnit(ctx *ginext.Context)
	DeleteUnit(ctx *ginext.Context)

	GetAdminSettings(ctx *ginext.Context)
	UpdateSettings(ctx *ginext.Context)

	ListSectorAdmins(ctx *ginext.Context)
	CreateSectorAdmin(ctx *ginext.Context)
	UpdateSectorAdmin(ctx *ginext.Context)
	DeleteSectorAdmin(ctx *ginext.Context)

	SectorStats(ctx *ginext.Context)
	SectorRegistrations(ctx *ginext.Context)
	SectorUnits(ctx *ginext.Context)

	RequestExport(ctx *ginext.Context)
	DownloadExport(ctx *ginext.Context)
}

// Publisher enqueues export jobs; *rabbit.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, message []byte) error
}

type Options struct {
	Repo         repo.Repository
	Intake       *registration.IntakeService
	Admission    *registration.AdmissionService
	Auth         *auth.Authenticator
	Exports      Publisher
	ExportsDir   string
	CookieSecure bool
	Log          *zerolog.Logger
}

type service struct {
	repo         repo.Repository
	intake       *registration.IntakeService
	admission    *registration.AdmissionService
	auth         *auth.Authenticator
	exports      Publisher
	exportsDir   string
	cookieSecure bool
	log          *zerolog.Logger
	now          func() time.Time
}

func NewService(opts Options) Service {
	log := opts.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &service{
		repo:         opts.Repo,
		intake:       opts.Intake,
		admission:    opts.Admission,
		auth:         opts.Auth,
		exports:      opts.Exports,
		exportsDir:   opts.ExportsDir,
		cookieSecure: opts.CookieSecure,
		log:          log,
		now:          time.Now,
	}
}

func paramID(ctx *ginext.Context, name string) (int, bool) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		dto.FieldBadFormatError(ctx, name)
		return 0, false
	}
	return id, true
}

func queryID(ctx *ginext.Context, name string) (int, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		dto.FieldBadFormatError(ctx, name)
		return 0, false
	}
	return id, true
}

// slugify lower-cases name and joins its words with dashes.
func slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func (s *service) startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// storeError answers CRUD failures; what names the entity for the client.
func (s *service) storeError(ctx *ginext.Context, err error, what string) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		dto.NotFoundError(ctx, what)
	case errors.Is(err, repo.ErrConflict):
		dto.ConflictError(ctx, what+" already exists")
	case errors.Is(err, repo.ErrForeignKey):
		dto.ConflictError(ctx, what+" is still referenced by other records")
	default:
		s.log.Error().Err(err).Str("entity", what).Str("path", ctx.FullPath()).Msg("store operation failed")
		dto.InternalServerError(ctx)
	}
}

func (s *service) validationError(ctx *ginext.Context, err error) bool {
	var verr *registration.ValidationError
	if errors.As(err, &verr) {
		dto.FieldIncorrectError(ctx, verr.Field, verr.Reason)
		return true
	}
	return false
}

// bind decodes the JSON body into req and runs its validate tags. It answers
// the request itself and returns false on failure.
func bind(ctx *ginext.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request body")
		return false
	}
	if err := validator.Validate(ctx.Request.Context(), req); err != nil {
		var verr *validator.Error
		if errors.As(err, &verr) {
			dto.FieldIncorrectError(ctx, verr.Field, verr.Message)
		} else {
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		}
		return false
	}
	return true
}
