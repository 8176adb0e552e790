package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"regportal/internal/model"
)

func (r *repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

func (r *repository) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[s.Key] = s.Value
	}
	return settings, rows.Err()
}

func (r *repository) UpsertSettings(ctx context.Context, values map[string]string) error {
	return r.writeSettings(ctx, values, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`)
}

// SeedSettings inserts defaults without touching keys that already exist.
func (r *repository) SeedSettings(ctx context.Context, defaults map[string]string) error {
	return r.writeSettings(ctx, defaults, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`)
}

func (r *repository) writeSettings(ctx context.Context, values map[string]string, query string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k, values[k]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to write setting %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *repository) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM admins WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

func (r *repository) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		username, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure admin: %w", err)
	}
	return nil
}

const sectorAdminColumns = `
	a.id, a.username, a.password_hash, a.sector_id, s.name, s.slug
	FROM sector_admins a
	JOIN sectors s ON s.id = a.sector_id`

func scanSectorAdmin(row rowScanner) (*model.SectorAdmin, error) {
	var (
		a      model.SectorAdmin
		sector model.Sector
	)
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.SectorID, &sector.Name, &sector.Slug); err != nil {
		return nil, err
	}
	sector.ID = a.SectorID
	a.Sector = &sector
	return &a, nil
}

func (r *repository) ListSectorAdmins(ctx context.Context) ([]model.SectorAdmin, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sectorAdminColumns+" ORDER BY a.username ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sector admins: %w", err)
	}
	defer rows.Close()

	admins := make([]model.SectorAdmin, 0)
	for rows.Next() {
		a, err := scanSectorAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sector admin: %w", err)
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

func (r *repository) getSectorAdmin(ctx context.Context, where string, arg any) (*model.SectorAdmin, error) {
	a, err := scanSectorAdmin(r.db.QueryRowContext(ctx, "SELECT "+sectorAdminColumns+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sector admin: %w", err)
	}
	return a, nil
}

func (r *repository) GetSectorAdminByUsername(ctx context.Context, username string) (*model.SectorAdmin, error) {
	return r.getSectorAdmin(ctx, "a.username = $1", username)
}

func (r *repository) CreateSectorAdmin(ctx context.Context, a *model.SectorAdmin) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sector_admins (username, password_hash, sector_id) VALUES ($1, $2, $3) RETURNING id`,
		a.Username, a.PasswordHash, a.SectorID,
	).Scan(&a.ID)
	if err != nil {
		if cerr := constraintErr(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert sector admin: %w", err)
	}
	created, err := r.getSectorAdmin(ctx, "a.id = $1", a.ID)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

func (r *repository) UpdateSectorAdmin(ctx context.Context, id int, upd SectorAdminUpdate) (*model.SectorAdmin, error) {
	var (
		sets []string
		args = []any{id}
	)
	if upd.Username != nil {
		args = append(args, *upd.Username)
		sets = append(sets, fmt.Sprintf("username = $%d", len(args)))
	}
	if upd.PasswordHash != nil {
		args = append(args, *upd.PasswordHash)
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if upd.SectorID != nil {
		args = append(args, *upd.SectorID)
		sets = append(sets, fmt.Sprintf("sector_id = $%d", len(args)))
	}

	if len(sets) > 0 {
		res, err := r.db.ExecContext(ctx,
			"UPDATE sector_admins SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
		if err != nil {
			if cerr := constraintErr(err); cerr != nil {
				return nil, cerr
			}
			return nil, fmt.Errorf("failed to update sector admin: %w", err)
		}
		if err := mustAffect(res); err != nil {
			return nil, err
		}
	}
	return r.getSectorAdmin(ctx, "a.id = $1", id)
}

func (r *repository) DeleteSectorAdmin(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sector_admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sector admin: %w", err)
	}
	return mustAffect(res)
}
