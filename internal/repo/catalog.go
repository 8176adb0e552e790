package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"regportal/internal/model"
)

func (r *repository) ListSectors(ctx context.Context) ([]model.Sector, error) {
	query := `
		SELECT s.id, s.name, s.slug, s.created_at, COUNT(r.id)
		FROM sectors s
		LEFT JOIN registrations r ON r.sector_id = s.id
		GROUP BY s.id, s.name, s.slug, s.created_at
		ORDER BY s.name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	defer rows.Close()

	sectors := make([]model.Sector, 0)
	index := make(map[int]int)
	for rows.Next() {
		var s model.Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.RegistrationCount); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		s.Units = make([]model.Unit, 0)
		index[s.ID] = len(sectors)
		sectors = append(sectors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sectors: %w", err)
	}

	units, err := r.queryUnits(ctx, `
		SELECT u.id, u.name, u.sector_id, u.created_at, s.name, s.slug
		FROM units u JOIN sectors s ON s.id = u.sector_id
		ORDER BY u.name ASC
	`)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if i, ok := index[u.SectorID]; ok {
			u.Sector = nil
			sectors[i].Units = append(sectors[i].Units, u)
		}
	}
	return sectors, nil
}

func (r *repository) GetSector(ctx context.Context, id int) (*model.Sector, error) {
	var s model.Sector
	err := r.db.QueryRowContext(ctx, `SELECT id, name, slug, created_at FROM sectors WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sector: %w", err)
	}
	return &s, nil
}

func (r *repository) CreateSector(ctx context.Context, s *model.Sector) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sectors (name, slug) VALUES ($1, $2) RETURNING id, created_at`,
		s.Name, s.Slug,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert sector: %w", err)
	}
	return nil
}

func (r *repository) UpdateSector(ctx context.Context, s *model.Sector) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE sectors SET name = $2, slug = $3 WHERE id = $1 RETURNING created_at`,
		s.ID, s.Name, s.Slug,
	).Scan(&s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to update sector: %w", err)
	}
	return nil
}

// DeleteSector removes a sector and, through ON DELETE CASCADE, its units
// and sector admin. Sectors that still own registrations are refused.
func (r *repository) DeleteSector(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sectors WHERE id = $1`, id)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to delete sector: %w", err)
	}
	return mustAffect(res)
}

func (r *repository) queryUnits(ctx context.Context, query string, args ...any) ([]model.Unit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := make([]model.Unit, 0)
	for rows.Next() {
		var (
			u      model.Unit
			sector model.Sector
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.SectorID, &u.CreatedAt, &sector.Name, &sector.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		sector.ID = u.SectorID
		u.Sector = &sector
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units: %w", err)
	}
	return units, nil
}

func (r *repository) ListUnits(ctx context.Context) ([]model.Unit, error) {
	return r.queryUnits(ctx, `
		SELECT u.id, u.name, u.sector_id, u.created_at, s.name, s.slug
		FROM units u JOIN sectors s ON s.id = u.sector_id
		ORDER BY u.name ASC
	`)
}

func (r *repository) ListUnitsBySector(ctx context.Context, sectorID int) ([]model.Unit, error) {
	return r.queryUnits(ctx, `
		SELECT u.id, u.name, u.sector_id, u.created_at, s.name, s.slug
		FROM units u JOIN sectors s ON s.id = u.sector_id
		WHERE u.sector_id = $1
		ORDER BY u.name ASC
	`, sectorID)
}

func (r *repository) GetUnit(ctx context.Context, id int) (*model.Unit, error) {
	units, err := r.queryUnits(ctx, `
		SELECT u.id, u.name, u.sector_id, u.created_at, s.name, s.slug
		FROM units u JOIN sectors s ON s.id = u.sector_id
		WHERE u.id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNotFound
	}
	return &units[0], nil
}

func (r *repository) CreateUnit(ctx context.Context, u *model.Unit) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO units (name, sector_id) VALUES ($1, $2) RETURNING id, created_at`,
		u.Name, u.SectorID,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	return nil
}

func (r *repository) UpdateUnit(ctx context.Context, id int, name string) (*model.Unit, error) {
	u := model.Unit{ID: id}
	err := r.db.QueryRowContext(ctx,
		`UPDATE units SET name = $2 WHERE id = $1 RETURNING name, sector_id, created_at`,
		id, name,
	).Scan(&u.Name, &u.SectorID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if cerr := constraintErr(err); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("failed to update unit: %w", err)
	}
	return &u, nil
}

func (r *repository) DeleteUnit(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	return mustAffect(res)
}
