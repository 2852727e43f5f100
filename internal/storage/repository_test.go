package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepositoryFromDB(db), mock
}

func TestSQLiteRepository_Load(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSnapshotSQL)).
		WithArgs("finance").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"currency":"JPY"}`))

	got, err := repo.Load(context.Background(), "finance")
	require.NoError(t, err)
	assert.Equal(t, `{"currency":"JPY"}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_LoadMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSnapshotSQL)).
		WithArgs("finance").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := repo.Load(context.Background(), "finance")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_SaveUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertSnapshotSQL)).
		WithArgs("finance", `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), "finance", []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_ErrorsAreWrapped(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("disk I/O error")
	mock.ExpectExec(regexp.QuoteMeta(deleteSnapshotSQL)).
		WithArgs("finance").
		WillReturnError(boom)

	err := repo.Delete(context.Background(), "finance")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
