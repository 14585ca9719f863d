package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_FindByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, email FROM users WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("u1", "Ada", "ada@x.io"))

	users, err := NewUserRepository(db).FindByIDs(context.Background(), []string{"u1", "u9"})

	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "Ada", users["u1"].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIDs_EmptySkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	users, err := NewUserRepository(db).FindByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}
