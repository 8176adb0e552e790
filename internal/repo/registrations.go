package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"regportal/internal/model"
)

const registrationColumns = `
	r.id, r.reg_id, r.name, r.mobile, r.designation, r.sector_id, r.unit_id, r.qr_code,
	r.admitted, r.admission_time, r.created_at, s.name, s.slug, u.name
	FROM registrations r
	JOIN sectors s ON s.id = r.sector_id
	JOIN units u ON u.id = r.unit_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg           model.Registration
		admissionTime sql.NullTime
		sector        model.Sector
		unit          model.Unit
	)
	if err := row.Scan(
		&reg.ID,
		&reg.RegID,
		&reg.Name,
		&reg.Mobile,
		&reg.Designation,
		&reg.SectorID,
		&reg.UnitID,
		&reg.QRCode,
		&reg.Admitted,
		&admissionTime,
		&reg.CreatedAt,
		&sector.Name,
		&sector.Slug,
		&unit.Name,
	); err != nil {
		return nil, err
	}
	if admissionTime.Valid {
		t := admissionTime.Time
		reg.AdmissionTime = &t
	}
	sector.ID = reg.SectorID
	unit.ID = reg.UnitID
	unit.SectorID = reg.SectorID
	reg.Sector = &sector
	reg.Unit = &unit
	return &reg, nil
}

func (r *repository) LastRegistrationID(ctx context.Context) (int64, error) {
	var last int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM registrations`).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to read last registration id: %w", err)
	}
	return last, nil
}

func (r *repository) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	query := `
		INSERT INTO registrations (reg_id, name, mobile, designation, sector_id, unit_id, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		reg.RegID, reg.Name, reg.Mobile, reg.Designation, reg.SectorID, reg.UnitID, reg.QRCode,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	reg.Admitted = false
	reg.AdmissionTime = nil
	return nil
}

func (r *repository) getRegistration(ctx context.Context, where string, arg any) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+registrationColumns+" WHERE "+where, arg)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *repository) GetRegistrationByRegID(ctx context.Context, regID string) (*model.Registration, error) {
	return r.getRegistration(ctx, "r.reg_id = $1", regID)
}

func (r *repository) GetRegistrationByMobile(ctx context.Context, mobile string) (*model.Registration, error) {
	return r.getRegistration(ctx, "r.mobile = $1", mobile)
}

// AdmitRegistration flips a pending registration to admitted. It reports
// false when no pending row with regID exists.
func (r *repository) AdmitRegistration(ctx context.Context, regID string, at time.Time) (bool, error) {
	query := `
		UPDATE registrations
		SET admitted = TRUE, admission_time = $2
		WHERE reg_id = $1 AND admitted = FALSE
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, regID, at).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to admit registration: %w", err)
	}
	return true, nil
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *repository) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + likeEscaper.Replace(f.Search) + "%")
		conds = append(conds, fmt.Sprintf(
			`(r.name ILIKE %[1]s ESCAPE '\' OR r.mobile ILIKE %[1]s ESCAPE '\' OR r.reg_id ILIKE %[1]s ESCAPE '\')`, p))
	}
	if f.SectorID > 0 {
		conds = append(conds, "r.sector_id = "+arg(f.SectorID))
	}
	if f.UnitID > 0 {
		conds = append(conds, "r.unit_id = "+arg(f.UnitID))
	}
	if f.Designation != "" {
		conds = append(conds, "r.designation = "+arg(f.Designation))
	}
	if f.Date != nil {
		conds = append(conds, "r.created_at >= "+arg(*f.Date))
		conds = append(conds, "r.created_at < "+arg(f.Date.Add(24*time.Hour)))
	}

	query := "SELECT " + registrationColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return regs, nil
}

func (r *repository) DeleteRegistration(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return mustAffect(res)
}
