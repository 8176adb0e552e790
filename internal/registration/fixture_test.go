package registration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"regportal/internal/model"
	"regportal/internal/repo"
)

type fixture struct {
	store     repo.Repository
	sector    *model.Sector
	unit      *model.Unit
	other     *model.Sector
	otherUnit *model.Unit
	intake    *IntakeService
	admission *AdmissionService
}

// newFixture opens registration against an in-memory store holding two
// sectors with one unit each.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemoryRepository()

	f := &fixture{store: store}
	f.sector = &model.Sector{Name: "Operations", Slug: "operations"}
	require.NoError(t, store.CreateSector(ctx, f.sector))
	f.unit = &model.Unit{Name: "Plant 1", SectorID: f.sector.ID}
	require.NoError(t, store.CreateUnit(ctx, f.unit))

	f.other = &model.Sector{Name: "Finance", Slug: "finance"}
	require.NoError(t, store.CreateSector(ctx, f.other))
	f.otherUnit = &model.Unit{Name: "Accounts", SectorID: f.other.ID}
	require.NoError(t, store.CreateUnit(ctx, f.otherUnit))

	require.NoError(t, store.UpsertSettings(ctx, map[string]string{
		model.SettingRegistrationStatus: model.RegistrationOpen,
	}))

	f.intake = NewIntakeService(store, NewAllocator(store, DefaultMaxAttempts, nil), nil)
	f.admission = NewAdmissionService(store, nil)
	return f
}

func (f *fixture) submission(mobile string) Submission {
	return Submission{
		Name:        "Attendee " + mobile,
		Mobile:      mobile,
		Designation: "Unit Executive",
		SectorID:    f.sector.ID,
		UnitID:      f.unit.ID,
	}
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	regs, err := f.store.ListRegistrations(context.Background(), repo.RegistrationFilter{})
	require.NoError(t, err)
	return len(regs)
}
