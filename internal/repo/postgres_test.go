package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/model"
)

func newRepoWithMock(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return newRepository(db, nil), mock
}

var registrationRowColumns = []string{
	"id", "reg_id", "name", "mobile", "designation", "sector_id", "unit_id", "qr_code",
	"admitted", "admission_time", "created_at", "sector_name", "sector_slug", "unit_name",
}

func TestLastRegistrationID(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT\s+COALESCE\(MAX\(id\),\s*0\)\s+FROM\s+registrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(41))

	last, err := r.LastRegistrationID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(41), last)
}

func TestInsertRegistration(t *testing.T) {
	r, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+registrations\s*\(reg_id,\s*name,\s*mobile,\s*designation,\s*sector_id,\s*unit_id,\s*qr_code\).*RETURNING\s+id,\s*created_at`).
		WithArgs("REG-0001", "A", "9000000001", "Unit Executive", 1, 2, `{"regId":"REG-0001"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, created))

	reg := &model.Registration{
		RegID: "REG-0001", Name: "A", Mobile: "9000000001", Designation: "Unit Executive",
		SectorID: 1, UnitID: 2, QRCode: `{"regId":"REG-0001"}`,
	}
	require.NoError(t, r.InsertRegistration(context.Background(), reg))
	assert.Equal(t, 1, reg.ID)
	assert.True(t, created.Equal(reg.CreatedAt))
	assert.False(t, reg.Admitted)
}

func TestInsertRegistration_ConstraintMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "reg id", err: &pq.Error{Code: "23505", Constraint: constraintRegID}, want: ErrDuplicateRegID},
		{name: "mobile", err: &pq.Error{Code: "23505", Constraint: constraintMobile}, want: ErrDuplicateMobile},
		{name: "other unique", err: &pq.Error{Code: "23505", Constraint: "something_else"}, want: ErrConflict},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: ErrForeignKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newRepoWithMock(t)
			mock.ExpectQuery(`INSERT\s+INTO\s+registrations`).WillReturnError(tt.err)

			err := r.InsertRegistration(context.Background(), &model.Registration{RegID: "REG-0001"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInsertRegistration_OtherError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT\s+INTO\s+registrations`).WillReturnError(errors.New("db down"))

	err := r.InsertRegistration(context.Background(), &model.Registration{RegID: "REG-0001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrDuplicateRegID)
}

func TestAdmitRegistration(t *testing.T) {
	r, mock := newRepoWithMock(t)
	at := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	q := `(?s)UPDATE\s+registrations\s+SET\s+admitted\s*=\s*TRUE,\s*admission_time\s*=\s*\$2\s+WHERE\s+reg_id\s*=\s*\$1\s+AND\s+admitted\s*=\s*FALSE\s+RETURNING\s+id`

	mock.ExpectQuery(q).WithArgs("REG-0001", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(q).WithArgs("REG-0001", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ok, err := r.AdmitRegistration(context.Background(), "REG-0001", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AdmitRegistration(context.Background(), "REG-0001", at)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetRegistrationByRegID(t *testing.T) {
	r, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	admitted := created.Add(time.Hour)

	mock.ExpectQuery(`(?s)SELECT.*FROM\s+registrations\s+r.*WHERE\s+r\.reg_id\s*=\s*\$1`).
		WithArgs("REG-0001").
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).AddRow(
			1, "REG-0001", "A", "9000000001", "Unit Executive", 1, 2, "{}",
			true, admitted, created, "Operations", "operations", "Plant 1",
		))

	reg, err := r.GetRegistrationByRegID(context.Background(), "REG-0001")
	require.NoError(t, err)
	assert.True(t, reg.Admitted)
	require.NotNil(t, reg.AdmissionTime)
	assert.True(t, admitted.Equal(*reg.AdmissionTime))
	assert.Equal(t, "Operations", reg.Sector.Name)
	assert.Equal(t, "Plant 1", reg.Unit.Name)
	assert.Equal(t, 1, reg.Unit.SectorID)
}

func TestGetRegistrationByMobile_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT.*WHERE\s+r\.mobile\s*=\s*\$1`).
		WithArgs("9000000001").
		WillReturnError(sql.ErrNoRows)

	_, err := r.GetRegistrationByMobile(context.Background(), "9000000001")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRegistrations_BuildsFilter(t *testing.T) {
	r, mock := newRepoWithMock(t)
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)WHERE\s+\(r\.name\s+ILIKE\s+\$1\s+ESCAPE\s+'\\'\s+OR\s+r\.mobile\s+ILIKE\s+\$1\s+ESCAPE\s+'\\'` +
		`\s+OR\s+r\.reg_id\s+ILIKE\s+\$1\s+ESCAPE\s+'\\'\)` +
		`\s+AND\s+r\.sector_id\s*=\s*\$2\s+AND\s+r\.unit_id\s*=\s*\$3\s+AND\s+r\.designation\s*=\s*\$4` +
		`\s+AND\s+r\.created_at\s*>=\s*\$5\s+AND\s+r\.created_at\s*<\s*\$6\s+ORDER\s+BY\s+r\.created_at\s+DESC,\s*r\.id\s+DESC`).
		WithArgs("%900%", 1, 2, "Manager", day, day.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns))

	regs, err := r.ListRegistrations(context.Background(), RegistrationFilter{
		Search: "900", SectorID: 1, UnitID: 2, Designation: "Manager", Date: &day,
	})
	require.NoError(t, err)
	assert.NotNil(t, regs)
	assert.Empty(t, regs)
}

func TestListRegistrations_SearchIsLiteral(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`ILIKE\s+\$1\s+ESCAPE`).
		WithArgs(`%50\%\_off\\%`).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns))

	_, err := r.ListRegistrations(context.Background(), RegistrationFilter{Search: `50%_off\`})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRegistrations_NoFilter(t *testing.T) {
	r, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)JOIN\s+units\s+u\s+ON\s+u\.id\s*=\s*r\.unit_id\s+ORDER\s+BY`).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow(2, "REG-0002", "B", "9000000002", "Manager", 1, 2, "{}", false, nil, created, "Operations", "operations", "Plant 1").
			AddRow(1, "REG-0001", "A", "9000000001", "Manager", 1, 2, "{}", false, nil, created, "Operations", "operations", "Plant 1"))

	regs, err := r.ListRegistrations(context.Background(), RegistrationFilter{})
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "REG-0002", regs[0].RegID)
	assert.Nil(t, regs[0].AdmissionTime)
}

func TestDeleteRegistration(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+registrations\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+registrations\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.DeleteRegistration(context.Background(), 7))
	require.ErrorIs(t, r.DeleteRegistration(context.Background(), 8), ErrNotFound)
}

func TestDeleteSector_InUse(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+sectors`).
		WithArgs(3).WillReturnError(&pq.Error{Code: "23503"})

	require.ErrorIs(t, r.DeleteSector(context.Background(), 3), ErrForeignKey)
}

func TestEnsureAdmin(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+admins.*ON\s+CONFLICT\s*\(username\)\s*DO\s+NOTHING`).
		WithArgs("admin", "hash").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.EnsureAdmin(context.Background(), "admin", "hash"))
}

func TestUpsertSettings_Transaction(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+settings.*ON\s+CONFLICT`).
		WithArgs("page_heading", "Welcome").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+settings.*ON\s+CONFLICT`).
		WithArgs("registration_status", "closed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.UpsertSettings(context.Background(), map[string]string{
		"registration_status": "closed",
		"page_heading":        "Welcome",
	}))
}

func TestUpsertSettings_RollsBack(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+settings`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	require.Error(t, r.UpsertSettings(context.Background(), map[string]string{"page_heading": "x"}))
}
