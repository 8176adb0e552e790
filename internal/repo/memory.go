package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"regportal/internal/model"
)

// memoryRepository keeps the whole portal in process memory. It enforces the
// same unique and foreign key constraints as the Postgres schema, serialised
// by a single mutex.
type memoryRepository struct {
	mu sync.Mutex

	registrations map[int]*model.Registration
	sectors       map[int]*model.Sector
	units         map[int]*model.Unit
	settings      map[string]string
	admins        map[int]*model.Admin
	sectorAdmins  map[int]*model.SectorAdmin

	seq map[string]int
	now func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		registrations: make(map[int]*model.Registration),
		sectors:       make(map[int]*model.Sector),
		units:         make(map[int]*model.Unit),
		settings:      make(map[string]string),
		admins:        make(map[int]*model.Admin),
		sectorAdmins:  make(map[int]*model.SectorAdmin),
		seq:           make(map[string]int),
		now:           time.Now,
	}
}

func (m *memoryRepository) next(table string) int {
	m.seq[table]++
	return m.seq[table]
}

func (m *memoryRepository) MigrateUp(string) error   { return nil }
func (m *memoryRepository) MigrateDown(string) error { return nil }

func (m *memoryRepository) resolve(reg model.Registration) model.Registration {
	if reg.AdmissionTime != nil {
		t := *reg.AdmissionTime
		reg.AdmissionTime = &t
	}
	if s, ok := m.sectors[reg.SectorID]; ok {
		reg.Sector = &model.Sector{ID: s.ID, Name: s.Name, Slug: s.Slug}
	}
	if u, ok := m.units[reg.UnitID]; ok {
		reg.Unit = &model.Unit{ID: u.ID, Name: u.Name, SectorID: u.SectorID}
	}
	return reg
}

func (m *memoryRepository) LastRegistrationID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last int
	for id := range m.registrations {
		if id > last {
			last = id
		}
	}
	return int64(last), nil
}

func (m *memoryRepository) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range m.registrations {
		if r.RegID == reg.RegID {
			return ErrDuplicateRegID
		}
	}
	for _, r := range m.registrations {
		if r.Mobile == reg.Mobile {
			return ErrDuplicateMobile
		}
	}
	if _, ok := m.sectors[reg.SectorID]; !ok {
		return ErrForeignKey
	}
	if _, ok := m.units[reg.UnitID]; !ok {
		return ErrForeignKey
	}

	stored := *reg
	stored.ID = m.next("registrations")
	stored.CreatedAt = m.now()
	stored.Admitted = false
	stored.AdmissionTime = nil
	stored.Sector, stored.Unit = nil, nil
	m.registrations[stored.ID] = &stored

	reg.ID = stored.ID
	reg.CreatedAt = stored.CreatedAt
	reg.Admitted = false
	reg.AdmissionTime = nil
	return nil
}

func (m *memoryRepository) findRegistration(match func(*model.Registration) bool) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.registrations {
		if match(r) {
			out := m.resolve(*r)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) GetRegistrationByRegID(ctx context.Context, regID string) (*model.Registration, error) {
	return m.findRegistration(func(r *model.Registration) bool { return r.RegID == regID })
}

func (m *memoryRepository) GetRegistrationByMobile(ctx context.Context, mobile string) (*model.Registration, error) {
	return m.findRegistration(func(r *model.Registration) bool { return r.Mobile == mobile })
}

func (m *memoryRepository) AdmitRegistration(ctx context.Context, regID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.registrations {
		if r.RegID != regID {
			continue
		}
		if r.Admitted {
			return false, nil
		}
		t := at
		r.Admitted = true
		r.AdmissionTime = &t
		return true, nil
	}
	return false, nil
}

func (m *memoryRepository) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(f.Search)
	out := make([]model.Registration, 0)
	for _, r := range m.registrations {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(strings.ToLower(r.Mobile), search) &&
			!strings.Contains(strings.ToLower(r.RegID), search) {
			continue
		}
		if f.SectorID > 0 && r.SectorID != f.SectorID {
			continue
		}
		if f.UnitID > 0 && r.UnitID != f.UnitID {
			continue
		}
		if f.Designation != "" && r.Designation != f.Designation {
			continue
		}
		if f.Date != nil && (r.CreatedAt.Before(*f.Date) || !r.CreatedAt.Before(f.Date.Add(24*time.Hour))) {
			continue
		}
		out = append(out, m.resolve(*r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryRepository) DeleteRegistration(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registrations[id]; !ok {
		return ErrNotFound
	}
	delete(m.registrations, id)
	return nil
}

func (m *memoryRepository) ListSectors(ctx context.Context) ([]model.Sector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Sector, 0, len(m.sectors))
	for _, s := range m.sectors {
		sector := *s
		sector.Units = make([]model.Unit, 0)
		for _, u := range m.units {
			if u.SectorID == s.ID {
				sector.Units = append(sector.Units, *u)
			}
		}
		sort.Slice(sector.Units, func(i, j int) bool { return sector.Units[i].Name < sector.Units[j].Name })
		for _, r := range m.registrations {
			if r.SectorID == s.ID {
				sector.RegistrationCount++
			}
		}
		out = append(out, sector)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepository) GetSector(ctx context.Context, id int) (*model.Sector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sectors[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *memoryRepository) sectorTaken(s *model.Sector) bool {
	for _, other := range m.sectors {
		if other.ID != s.ID && (other.Name == s.Name || other.Slug == s.Slug) {
			return true
		}
	}
	return false
}

func (m *memoryRepository) CreateSector(ctx context.Context, s *model.Sector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sectorTaken(s) {
		return ErrConflict
	}
	s.ID = m.next("sectors")
	s.CreatedAt = m.now()
	stored := model.Sector{ID: s.ID, Name: s.Name, Slug: s.Slug, CreatedAt: s.CreatedAt}
	m.sectors[s.ID] = &stored
	return nil
}

func (m *memoryRepository) UpdateSector(ctx context.Context, s *model.Sector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sectors[s.ID]
	if !ok {
		return ErrNotFound
	}
	if m.sectorTaken(s) {
		return ErrConflict
	}
	stored.Name, stored.Slug = s.Name, s.Slug
	s.CreatedAt = stored.CreatedAt
	return nil
}

func (m *memoryRepository) DeleteSector(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sectors[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.registrations {
		if r.SectorID == id {
			return ErrForeignKey
		}
	}
	for uid, u := range m.units {
		if u.SectorID == id {
			delete(m.units, uid)
		}
	}
	for aid, a := range m.sectorAdmins {
		if a.SectorID == id {
			delete(m.sectorAdmins, aid)
		}
	}
	delete(m.sectors, id)
	return nil
}

func (m *memoryRepository) unitWithSector(u *model.Unit) model.Unit {
	out := *u
	if s, ok := m.sectors[u.SectorID]; ok {
		out.Sector = &model.Sector{ID: s.ID, Name: s.Name, Slug: s.Slug}
	}
	return out
}

func (m *memoryRepository) listUnits(match func(*model.Unit) bool) []model.Unit {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Unit, 0)
	for _, u := range m.units {
		if match(u) {
			out = append(out, m.unitWithSector(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (m *memoryRepository) ListUnits(ctx context.Context) ([]model.Unit, error) {
	return m.listUnits(func(*model.Unit) bool { return true }), nil
}

func (m *memoryRepository) ListUnitsBySector(ctx context.Context, sectorID int) ([]model.Unit, error) {
	return m.listUnits(func(u *model.Unit) bool { return u.SectorID == sectorID }), nil
}

func (m *memoryRepository) GetUnit(ctx context.Context, id int) (*model.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.unitWithSector(u)
	return &out, nil
}

func (m *memoryRepository) unitTaken(id int, name string, sectorID int) bool {
	for _, other := range m.units {
		if other.ID != id && other.Name == name && other.SectorID == sectorID {
			return true
		}
	}
	return false
}

func (m *memoryRepository) CreateUnit(ctx context.Context, u *model.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sectors[u.SectorID]; !ok {
		return ErrForeignKey
	}
	if m.unitTaken(0, u.Name, u.SectorID) {
		return ErrConflict
	}
	u.ID = m.next("units")
	u.CreatedAt = m.now()
	stored := model.Unit{ID: u.ID, Name: u.Name, SectorID: u.SectorID, CreatedAt: u.CreatedAt}
	m.units[u.ID] = &stored
	return nil
}

func (m *memoryRepository) UpdateUnit(ctx context.Context, id int, name string) (*model.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.unitTaken(id, name, u.SectorID) {
		return nil, ErrConflict
	}
	u.Name = name
	out := *u
	return &out, nil
}

func (m *memoryRepository) DeleteUnit(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.units[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.registrations {
		if r.UnitID == id {
			return ErrForeignKey
		}
	}
	delete(m.units, id)
	return nil
}

func (m *memoryRepository) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryRepository) ListSettings(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *memoryRepository) UpsertSettings(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.settings[k] = v
	}
	return nil
}

func (m *memoryRepository) SeedSettings(ctx context.Context, defaults map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range defaults {
		if _, ok := m.settings[k]; !ok {
			m.settings[k] = v
		}
	}
	return nil
}

func (m *memoryRepository) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Username == username {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Username == username {
			return nil
		}
	}
	id := m.next("admins")
	m.admins[id] = &model.Admin{ID: id, Username: username, PasswordHash: passwordHash}
	return nil
}

func (m *memoryRepository) sectorAdminWithSector(a *model.SectorAdmin) model.SectorAdmin {
	out := *a
	if s, ok := m.sectors[a.SectorID]; ok {
		out.Sector = &model.Sector{ID: s.ID, Name: s.Name, Slug: s.Slug}
	}
	return out
}

func (m *memoryRepository) sectorAdminTaken(id int, username string, sectorID int) bool {
	for _, other := range m.sectorAdmins {
		if other.ID != id && (other.Username == username || other.SectorID == sectorID) {
			return true
		}
	}
	return false
}

func (m *memoryRepository) ListSectorAdmins(ctx context.Context) ([]model.SectorAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.SectorAdmin, 0, len(m.sectorAdmins))
	for _, a := range m.sectorAdmins {
		out = append(out, m.sectorAdminWithSector(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryRepository) GetSectorAdminByUsername(ctx context.Context, username string) (*model.SectorAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.sectorAdmins {
		if a.Username == username {
			out := m.sectorAdminWithSector(a)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) CreateSectorAdmin(ctx context.Context, a *model.SectorAdmin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sectors[a.SectorID]; !ok {
		return ErrForeignKey
	}
	if m.sectorAdminTaken(0, a.Username, a.SectorID) {
		return ErrConflict
	}
	a.ID = m.next("sector_admins")
	stored := model.SectorAdmin{ID: a.ID, Username: a.Username, PasswordHash: a.PasswordHash, SectorID: a.SectorID}
	m.sectorAdmins[a.ID] = &stored
	*a = m.sectorAdminWithSector(&stored)
	return nil
}

func (m *memoryRepository) UpdateSectorAdmin(ctx context.Context, id int, upd SectorAdminUpdate) (*model.SectorAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sectorAdmins[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := *stored
	if upd.Username != nil {
		next.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		next.PasswordHash = *upd.PasswordHash
	}
	if upd.SectorID != nil {
		if _, ok := m.sectors[*upd.SectorID]; !ok {
			return nil, ErrForeignKey
		}
		next.SectorID = *upd.SectorID
	}
	if m.sectorAdminTaken(id, next.Username, next.SectorID) {
		return nil, ErrConflict
	}
	*stored = next
	out := m.sectorAdminWithSector(stored)
	return &out, nil
}

func (m *memoryRepository) DeleteSectorAdmin(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sectorAdmins[id]; !ok {
		return ErrNotFound
	}
	delete(m.sectorAdmins, id)
	return nil
}

func tally(counts map[int]int, names func(int) string) []model.NamedCount {
	out := make([]model.NamedCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, model.NamedCount{ID: id, Name: names(id), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (m *memoryRepository) sectorName(id int) string {
	if s, ok := m.sectors[id]; ok {
		return s.Name
	}
	return "Unknown"
}

func (m *memoryRepository) unitName(id int) string {
	if u, ok := m.units[id]; ok {
		return u.Name
	}
	return "Unknown"
}

func (m *memoryRepository) AdminStats(ctx context.Context, dayStart time.Time) (*model.AdminStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &model.AdminStats{}
	bySector := make(map[int]int)
	byUnit := make(map[int]int)
	byDesignation := make(map[string]int)
	dayEnd := dayStart.Add(24 * time.Hour)
	for _, r := range m.registrations {
		st.Total++
		if !r.CreatedAt.Before(dayStart) && r.CreatedAt.Before(dayEnd) {
			st.TodayCount++
		}
		if r.Admitted {
			st.Admitted++
		}
		bySector[r.SectorID]++
		byUnit[r.UnitID]++
		byDesignation[r.Designation]++
	}
	st.SectorStats = tally(bySector, m.sectorName)
	st.UnitStats = tally(byUnit, m.unitName)
	st.DesignationStats = make([]model.NamedCount, 0, len(byDesignation))
	for d, n := range byDesignation {
		st.DesignationStats = append(st.DesignationStats, model.NamedCount{Name: d, Count: n})
	}
	sort.Slice(st.DesignationStats, func(i, j int) bool {
		return st.DesignationStats[i].Name < st.DesignationStats[j].Name
	})
	return st, nil
}

func (m *memoryRepository) SectorStats(ctx context.Context, sectorID int) (*model.SectorStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &model.SectorStats{}
	byUnit := make(map[int]int)
	for _, r := range m.registrations {
		if r.SectorID != sectorID {
			continue
		}
		st.Total++
		if r.Admitted {
			st.Admitted++
		}
		byUnit[r.UnitID]++
	}
	st.UnitStats = tally(byUnit, m.unitName)
	return st, nil
}
