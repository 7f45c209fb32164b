package store_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/store"
)

// newMockStore wires a Store to a go-sqlmock connection via the
// postgres dialector, the same Conn-injection pattern the teacher
// uses for its own sqlmock-backed tests, so SaveJob's failure path
// can be exercised without touching a real database file.
func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return store.New(&database.DB{DB: gdb}), mock
}

func TestSaveJobPropagatesTransactionFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE \"jobs\"").WillReturnError(gorm.ErrInvalidTransaction)
	mock.ExpectRollback()

	job := sampleJob()
	err := s.SaveJob(job)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
