package repo

import (
	"context"
	"fmt"
	"time"

	"regportal/internal/model"
)

func (r *repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (r *repository) groupCounts(ctx context.Context, query string, withID bool, args ...any) ([]model.NamedCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group registrations: %w", err)
	}
	defer rows.Close()

	out := make([]model.NamedCount, 0)
	for rows.Next() {
		var c model.NamedCount
		dest := []any{&c.Name, &c.Count}
		if withID {
			dest = append([]any{&c.ID}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) AdminStats(ctx context.Context, dayStart time.Time) (*model.AdminStats, error) {
	var (
		st  model.AdminStats
		err error
	)
	if st.Total, err = r.count(ctx, `SELECT COUNT(*) FROM registrations`); err != nil {
		return nil, err
	}
	if st.TodayCount, err = r.count(ctx,
		`SELECT COUNT(*) FROM registrations WHERE created_at >= $1 AND created_at < $2`,
		dayStart, dayStart.Add(24*time.Hour),
	); err != nil {
		return nil, err
	}
	if st.Admitted, err = r.count(ctx, `SELECT COUNT(*) FROM registrations WHERE admitted = TRUE`); err != nil {
		return nil, err
	}
	if st.SectorStats, err = r.groupCounts(ctx, `
		SELECT s.id, s.name, COUNT(*)
		FROM registrations r JOIN sectors s ON s.id = r.sector_id
		GROUP BY s.id, s.name
		ORDER BY s.name ASC
	`, true); err != nil {
		return nil, err
	}
	if st.UnitStats, err = r.groupCounts(ctx, `
		SELECT u.id, u.name, COUNT(*)
		FROM registrations r JOIN units u ON u.id = r.unit_id
		GROUP BY u.id, u.name
		ORDER BY u.name ASC
	`, true); err != nil {
		return nil, err
	}
	if st.DesignationStats, err = r.groupCounts(ctx, `
		SELECT designation, COUNT(*)
		FROM registrations
		GROUP BY designation
		ORDER BY designation ASC
	`, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *repository) SectorStats(ctx context.Context, sectorID int) (*model.SectorStats, error) {
	var (
		st  model.SectorStats
		err error
	)
	if st.Total, err = r.count(ctx, `SELECT COUNT(*) FROM registrations WHERE sector_id = $1`, sectorID); err != nil {
		return nil, err
	}
	if st.Admitted, err = r.count(ctx,
		`SELECT COUNT(*) FROM registrations WHERE sector_id = $1 AND admitted = TRUE`, sectorID,
	); err != nil {
		return nil, err
	}
	if st.UnitStats, err = r.groupCounts(ctx, `
		SELECT u.id, u.name, COUNT(*)
		FROM registrations r JOIN units u ON u.id = r.unit_id
		WHERE r.sector_id = $1
		GROUP BY u.id, u.name
		ORDER BY u.name ASC
	`, true, sectorID); err != nil {
		return nil, err
	}
	return &st, nil
}
