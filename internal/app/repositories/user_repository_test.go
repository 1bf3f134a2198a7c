package repositories

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
)

var (
	userResourceKeysSQL = regexp.QuoteMeta(`SELECT storage_key FROM resources WHERE uploaded_by = $1`)
	deleteUserSQL       = regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)
)

func TestUserDeleteReturnsStorageKeys(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(userResourceKeysSQL).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"storage_key"}).AddRow("resources/a.pdf").AddRow("resources/b.pdf"))
	mock.ExpectExec(deleteUserSQL).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	keys, err := NewUserRepository(mock).Delete(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, []string{"resources/a.pdf", "resources/b.pdf"}, keys)
}

func TestUserDeleteWithoutUploads(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(userResourceKeysSQL).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"storage_key"}))
	mock.ExpectExec(deleteUserSQL).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	keys, err := NewUserRepository(mock).Delete(context.Background(), 7)

	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestUserDeleteUnknownRollsBack(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(userResourceKeysSQL).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"storage_key"}).AddRow("resources/a.pdf"))
	mock.ExpectExec(deleteUserSQL).WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	keys, err := NewUserRepository(mock).Delete(context.Background(), 7)

	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.Nil(t, keys, "keys of a failed delete must not reach the caller")
}
