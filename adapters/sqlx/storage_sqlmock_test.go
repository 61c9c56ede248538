package sqlx_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/anuphat-bit/Eco-Hero/adapters/sqlx"
	"github.com/anuphat-bit/Eco-Hero/core"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func sampleEntry(t *testing.T) core.LogEntry {
	t.Helper()
	u := core.User{ID: "u1", DepartmentID: "d1"}
	e, err := core.NewLogEntry("l1", u, core.Digital, 10, time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func TestSQLMock_AppendLog(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	e := sampleEntry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_points FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(5))
	mock.ExpectExec(`INSERT INTO log_entries`).
		WithArgs("l1", "u1", "d1", "Digital", int64(10), int64(0), int64(20), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE users SET total_points = \$1 WHERE id = \$2`).
		WithArgs(int64(25), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.AppendLog(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AppendLog_UnknownUser(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_points FROM users`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.AppendLog(context.Background(), sampleEntry(t))
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AppendLog_Duplicate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_points FROM users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO log_entries`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	_, err := store.AppendLog(context.Background(), sampleEntry(t))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AppendLog_UpdateFailsRollsBack(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total_points FROM users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO log_entries`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE users SET total_points`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := store.AppendLog(context.Background(), sampleEntry(t))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SeedRoster(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO departments \(id, name\) VALUES \(\$1, \$2\) ON CONFLICT`).
		WithArgs("d1", "Finance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE SET name = EXCLUDED.name`).
		WithArgs("u1", "Ann", "ann@example.com", "d1", "1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SeedRoster(context.Background(),
		[]core.Department{{ID: "d1", Name: "Finance"}},
		[]core.User{{ID: "u1", Name: "Ann", Email: "ann@example.com", DepartmentID: "d1", PIN: "1234"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Reads(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	ctx := context.Background()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name FROM departments ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("d1", "Finance"))
	mock.ExpectQuery(`SELECT id, name, email, department_id, pin, total_points FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "department_id", "pin", "total_points"}).
			AddRow("u1", "Ann", "", "d1", "1234", 30))
	mock.ExpectQuery(`SELECT id, user_id, department_id, type, sheets, paper_used, eco_points, created_at FROM log_entries ORDER BY seq`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "department_id", "type", "sheets", "paper_used", "eco_points", "created_at"}).
			AddRow("l1", "u1", "d1", "Digital", 10, 0, 20, at))

	depts, err := store.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Department{{ID: "d1", Name: "Finance"}}, depts)

	users, err := store.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(30), users[0].TotalPoints)

	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, core.Digital, logs[0].Type)
	assert.Equal(t, int64(20), logs[0].EcoPoints)
	assert.True(t, logs[0].CreatedAt.Equal(at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_User_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "department_id", "pin", "total_points"}))

	_, err := store.User(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS departments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS log_entries`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS log_entries_user_idx`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
