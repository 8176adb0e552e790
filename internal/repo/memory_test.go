package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/model"
)

type memFixture struct {
	repo    *memoryRepository
	ops     *model.Sector
	fin     *model.Sector
	plant   *model.Unit
	depot   *model.Unit
	ledger  *model.Unit
	current time.Time
}

func newMemFixture(t *testing.T) *memFixture {
	t.Helper()
	ctx := context.Background()
	f := &memFixture{current: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.repo = NewMemoryRepository().(*memoryRepository)
	f.repo.now = func() time.Time { return f.current }

	f.ops = &model.Sector{Name: "Operations", Slug: "operations"}
	require.NoError(t, f.repo.CreateSector(ctx, f.ops))
	f.fin = &model.Sector{Name: "Finance", Slug: "finance"}
	require.NoError(t, f.repo.CreateSector(ctx, f.fin))

	f.plant = &model.Unit{Name: "Plant", SectorID: f.ops.ID}
	require.NoError(t, f.repo.CreateUnit(ctx, f.plant))
	f.depot = &model.Unit{Name: "Depot", SectorID: f.ops.ID}
	require.NoError(t, f.repo.CreateUnit(ctx, f.depot))
	f.ledger = &model.Unit{Name: "Ledger", SectorID: f.fin.ID}
	require.NoError(t, f.repo.CreateUnit(ctx, f.ledger))
	return f
}

func (f *memFixture) insert(t *testing.T, regID, mobile, designation string, unit *model.Unit) *model.Registration {
	t.Helper()
	reg := &model.Registration{
		RegID: regID, Name: "Name " + regID, Mobile: mobile, Designation: designation,
		SectorID: unit.SectorID, UnitID: unit.ID,
	}
	require.NoError(t, f.repo.InsertRegistration(context.Background(), reg))
	return reg
}

func TestMemory_InsertConstraints(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	f.insert(t, "REG-0001", "9000000001", "Manager", f.plant)

	err := f.repo.InsertRegistration(ctx, &model.Registration{RegID: "REG-0001", Mobile: "9000000001", SectorID: f.ops.ID, UnitID: f.plant.ID})
	require.ErrorIs(t, err, ErrDuplicateRegID, "reg id is checked before mobile")

	err = f.repo.InsertRegistration(ctx, &model.Registration{RegID: "REG-0002", Mobile: "9000000001", SectorID: f.ops.ID, UnitID: f.plant.ID})
	require.ErrorIs(t, err, ErrDuplicateMobile)

	err = f.repo.InsertRegistration(ctx, &model.Registration{RegID: "REG-0003", Mobile: "9000000003", SectorID: 99, UnitID: f.plant.ID})
	require.ErrorIs(t, err, ErrForeignKey)

	last, err := f.repo.LastRegistrationID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestMemory_AdmitIsConditional(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	f.insert(t, "REG-0001", "9000000001", "Manager", f.plant)
	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	ok, err := f.repo.AdmitRegistration(ctx, "REG-0001", first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.AdmitRegistration(ctx, "REG-0001", first.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.repo.AdmitRegistration(ctx, "REG-0404", first)
	require.NoError(t, err)
	assert.False(t, ok)

	reg, err := f.repo.GetRegistrationByRegID(ctx, "REG-0001")
	require.NoError(t, err)
	assert.True(t, reg.Admitted)
	assert.True(t, first.Equal(*reg.AdmissionTime))
}

func TestMemory_ListFilters(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	f.insert(t, "REG-0001", "9000000001", "Manager", f.plant)
	f.current = f.current.Add(time.Hour)
	f.insert(t, "REG-0002", "9000000002", "Engineer", f.depot)
	f.current = f.current.Add(24 * time.Hour)
	f.insert(t, "REG-0003", "8000000003", "Manager", f.ledger)

	all, err := f.repo.ListRegistrations(ctx, RegistrationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"REG-0003", "REG-0002", "REG-0001"}, regIDs(all))
	assert.Equal(t, "Ledger", all[0].Unit.Name)
	assert.Equal(t, "Finance", all[0].Sector.Name)

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter RegistrationFilter
		want   []string
	}{
		{name: "search mobile", filter: RegistrationFilter{Search: "9000"}, want: []string{"REG-0002", "REG-0001"}},
		{name: "search reg id case-insensitive", filter: RegistrationFilter{Search: "reg-0003"}, want: []string{"REG-0003"}},
		{name: "sector", filter: RegistrationFilter{SectorID: f.ops.ID}, want: []string{"REG-0002", "REG-0001"}},
		{name: "unit", filter: RegistrationFilter{UnitID: f.depot.ID}, want: []string{"REG-0002"}},
		{name: "designation", filter: RegistrationFilter{Designation: "Manager"}, want: []string{"REG-0003", "REG-0001"}},
		{name: "date", filter: RegistrationFilter{Date: &day}, want: []string{"REG-0002", "REG-0001"}},
		{name: "sector and designation", filter: RegistrationFilter{SectorID: f.ops.ID, Designation: "Manager"}, want: []string{"REG-0001"}},
		{name: "wildcards are literal", filter: RegistrationFilter{Search: "_"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.repo.ListRegistrations(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, regIDs(got))
		})
	}
}

func TestMemory_SectorLifecycle(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.repo.CreateSector(ctx, &model.Sector{Name: "Operations", Slug: "ops-2"}), ErrConflict)
	require.ErrorIs(t, f.repo.UpdateSector(ctx, &model.Sector{ID: f.fin.ID, Name: "Operations", Slug: "operations"}), ErrConflict)
	require.ErrorIs(t, f.repo.UpdateSector(ctx, &model.Sector{ID: 99, Name: "X", Slug: "x"}), ErrNotFound)

	require.NoError(t, f.repo.CreateSectorAdmin(ctx, &model.SectorAdmin{Username: "fin", PasswordHash: "h", SectorID: f.fin.ID}))

	f.insert(t, "REG-0001", "9000000001", "Manager", f.plant)
	require.ErrorIs(t, f.repo.DeleteSector(ctx, f.ops.ID), ErrForeignKey)
	require.ErrorIs(t, f.repo.DeleteUnit(ctx, f.plant.ID), ErrForeignKey)

	require.NoError(t, f.repo.DeleteSector(ctx, f.fin.ID))
	_, err := f.repo.GetUnit(ctx, f.ledger.ID)
	require.ErrorIs(t, err, ErrNotFound, "units cascade with their sector")
	_, err = f.repo.GetSectorAdminByUsername(ctx, "fin")
	require.ErrorIs(t, err, ErrNotFound, "sector admins cascade with their sector")

	sectors, err := f.repo.ListSectors(ctx)
	require.NoError(t, err)
	require.Len(t, sectors, 1)
	assert.Equal(t, 1, sectors[0].RegistrationCount)
	require.Len(t, sectors[0].Units, 2)
	assert.Equal(t, "Depot", sectors[0].Units[0].Name)
}

func TestMemory_Units(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.repo.CreateUnit(ctx, &model.Unit{Name: "Plant", SectorID: f.ops.ID}), ErrConflict)
	require.NoError(t, f.repo.CreateUnit(ctx, &model.Unit{Name: "Plant", SectorID: f.fin.ID}), "unit names are unique per sector")
	require.ErrorIs(t, f.repo.CreateUnit(ctx, &model.Unit{Name: "X", SectorID: 99}), ErrForeignKey)

	_, err := f.repo.UpdateUnit(ctx, f.depot.ID, "Plant")
	require.ErrorIs(t, err, ErrConflict)
	u, err := f.repo.UpdateUnit(ctx, f.depot.ID, "Warehouse")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse", u.Name)

	units, err := f.repo.ListUnitsBySector(ctx, f.ops.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Operations", units[0].Sector.Name)
}

func TestMemory_SectorAdmins(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	a := &model.SectorAdmin{Username: "ops", PasswordHash: "h", SectorID: f.ops.ID}
	require.NoError(t, f.repo.CreateSectorAdmin(ctx, a))
	assert.Equal(t, "Operations", a.Sector.Name)

	require.ErrorIs(t, f.repo.CreateSectorAdmin(ctx, &model.SectorAdmin{Username: "ops2", SectorID: f.ops.ID}), ErrConflict, "one admin per sector")
	require.ErrorIs(t, f.repo.CreateSectorAdmin(ctx, &model.SectorAdmin{Username: "ops", SectorID: f.fin.ID}), ErrConflict, "usernames are unique")

	name := "ops-lead"
	updated, err := f.repo.UpdateSectorAdmin(ctx, a.ID, SectorAdminUpdate{Username: &name, SectorID: &f.fin.ID})
	require.NoError(t, err)
	assert.Equal(t, "ops-lead", updated.Username)
	assert.Equal(t, f.fin.ID, updated.SectorID)
	assert.Equal(t, "h", updated.PasswordHash)

	require.NoError(t, f.repo.DeleteSectorAdmin(ctx, a.ID))
	require.ErrorIs(t, f.repo.DeleteSectorAdmin(ctx, a.ID), ErrNotFound)
}

func TestMemory_SettingsAndAdmins(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	_, err := f.repo.GetSetting(ctx, model.SettingRegistrationStatus)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.repo.SeedSettings(ctx, model.DefaultSettings()))
	require.NoError(t, f.repo.UpsertSettings(ctx, map[string]string{model.SettingRegistrationStatus: model.RegistrationClosed}))
	require.NoError(t, f.repo.SeedSettings(ctx, model.DefaultSettings()))

	status, err := f.repo.GetSetting(ctx, model.SettingRegistrationStatus)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationClosed, status, "seeding keeps existing values")

	require.NoError(t, f.repo.EnsureAdmin(ctx, "admin", "first"))
	require.NoError(t, f.repo.EnsureAdmin(ctx, "admin", "second"))
	admin, err := f.repo.GetAdminByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "first", admin.PasswordHash)
}

func TestMemory_Stats(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	f.insert(t, "REG-0001", "9000000001", "Manager", f.plant)
	f.insert(t, "REG-0002", "9000000002", "Engineer", f.plant)
	f.current = f.current.Add(-48 * time.Hour)
	f.insert(t, "REG-0003", "9000000003", "Manager", f.ledger)
	_, err := f.repo.AdmitRegistration(ctx, "REG-0002", f.current)
	require.NoError(t, err)

	st, err := f.repo.AdminStats(ctx, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.TodayCount)
	assert.Equal(t, 1, st.Admitted)
	assert.Equal(t, []model.NamedCount{
		{ID: f.fin.ID, Name: "Finance", Count: 1},
		{ID: f.ops.ID, Name: "Operations", Count: 2},
	}, st.SectorStats)
	assert.Equal(t, []model.NamedCount{
		{Name: "Engineer", Count: 1},
		{Name: "Manager", Count: 2},
	}, st.DesignationStats)

	sst, err := f.repo.SectorStats(ctx, f.ops.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sst.Total)
	assert.Equal(t, 1, sst.Admitted)
	assert.Equal(t, []model.NamedCount{{ID: f.plant.ID, Name: "Plant", Count: 2}}, sst.UnitStats)
}

func regIDs(regs []model.Registration) []string {
	out := make([]string, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.RegID)
	}
	return out
}
