package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"regportal/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateMobile = errors.New("mobile already registered")
	ErrDuplicateRegID  = errors.New("registration id already taken")
	ErrConflict        = errors.New("unique constraint violated")
	ErrForeignKey      = errors.New("foreign key violated")
)

const (
	constraintRegID  = "registrations_reg_id_key"
	constraintMobile = "registrations_mobile_key"
)

// RegistrationFilter narrows ListRegistrations. Zero values are ignored.
type RegistrationFilter struct {
	Search      string
	SectorID    int
	UnitID      int
	Designation string
	Date        *time.Time
}

type SectorAdminUpdate struct {
	Username     *string
	PasswordHash *string
	SectorID     *int
}

type Repository interface {
	LastRegistrationID(ctx context.Context) (int64, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistrationByRegID(ctx context.Context, regID string) (*model.Registration, error)
	GetRegistrationByMobile(ctx context.Context, mobile string) (*model.Registration, error)
	AdmitRegistration(ctx context.Context, regID string, at time.Time) (bool, error)
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, error)
	DeleteRegistration(ctx context.Context, id int) error

	ListSectors(ctx context.Context) ([]model.Sector, error)
	GetSector(ctx context.Context, id int) (*model.Sector, error)
	CreateSector(ctx context.Context, s *model.Sector) error
	UpdateSector(ctx context.Context, s *model.Sector) error
	DeleteSector(ctx context.Context, id int) error

	ListUnits(ctx context.Context) ([]model.Unit, error)
	ListUnitsBySector(ctx context.Context, sectorID int) ([]model.Unit, error)
	GetUnit(ctx context.Context, id int) (*model.Unit, error)
	CreateUnit(ctx context.Context, u *model.Unit) error
	UpdateUnit(ctx context.Context, id int, name string) (*model.Unit, error)
	DeleteUnit(ctx context.Context, id int) error

	GetSetting(ctx context.Context, key string) (string, error)
	ListSettings(ctx context.Context) (map[string]string, error)
	UpsertSettings(ctx context.Context, values map[string]string) error
	SeedSettings(ctx context.Context, defaults map[string]string) error

	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) error

	ListSectorAdmins(ctx context.Context) ([]model.SectorAdmin, error)
	GetSectorAdminByUsername(ctx context.Context, username string) (*model.SectorAdmin, error)
	CreateSectorAdmin(ctx context.Context, a *model.SectorAdmin) error
	UpdateSectorAdmin(ctx context.Context, id int, upd SectorAdminUpdate) (*model.SectorAdmin, error)
	DeleteSectorAdmin(ctx context.Context, id int) error

	AdminStats(ctx context.Context, dayStart time.Time) (*model.AdminStats, error)
	SectorStats(ctx context.Context, sectorID int) (*model.SectorStats, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *sql.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil || db.Master == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return newRepository(db.Master, log), nil
}

func newRepository(db *sql.DB, log *zerolog.Logger) *repository {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &repository{db: db, log: log}
}

func (r *repository) MigrateUp(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.up.sql", false)
}

func (r *repository) MigrateDown(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.down.sql", true)
}

func (r *repository) applyMigrations(migrationsDir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations (%s) applied from %s", pattern, migrationsDir)
	return nil
}

// constraintErr maps Postgres constraint violations onto repository errors.
// It returns nil for anything else.
func constraintErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case "23505":
		switch pqErr.Constraint {
		case constraintRegID:
			return ErrDuplicateRegID
		case constraintMobile:
			return ErrDuplicateMobile
		}
		return ErrConflict
	case "23503":
		return ErrForeignKey
	}
	return nil
}

// mustAffect turns a zero-row UPDATE/DELETE into ErrNotFound.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
