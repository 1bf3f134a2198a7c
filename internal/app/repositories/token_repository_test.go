package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
)

var (
	consumeTokenSQL = regexp.QuoteMeta(`UPDATE refresh_tokens SET is_revoked = $1 WHERE`) + `.*` + regexp.QuoteMeta(`RETURNING user_id`)
	tokenStateSQL   = regexp.QuoteMeta(`SELECT is_revoked FROM refresh_tokens WHERE token_hash = $1`)
)

func newTokenRepo(t *testing.T) (*TokenRepository, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock := newMockPool(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewTokenRepository(mock)
	repo.now = func() time.Time { return now }
	return repo, mock, now
}

func TestTokenConsume(t *testing.T) {
	repo, mock, now := newTokenRepo(t)
	mock.ExpectQuery(consumeTokenSQL).
		WithArgs(true, false, hashToken("refresh-1"), now).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(7)))

	userID, err := repo.Consume(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestTokenConsumeMiss(t *testing.T) {
	tests := []struct {
		name  string
		state *pgxmock.Rows
		want  error
	}{
		{"unknown token", pgxmock.NewRows([]string{"is_revoked"}), apperrors.ErrTokenNotFound},
		{"already revoked", pgxmock.NewRows([]string{"is_revoked"}).AddRow(true), apperrors.ErrTokenRevoked},
		{"expired", pgxmock.NewRows([]string{"is_revoked"}).AddRow(false), apperrors.ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, now := newTokenRepo(t)
			digest := hashToken("refresh-1")
			mock.ExpectQuery(consumeTokenSQL).
				WithArgs(true, false, digest, now).
				WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
			mock.ExpectQuery(tokenStateSQL).WithArgs(digest).WillReturnRows(tt.state)

			_, err := repo.Consume(context.Background(), "refresh-1")

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTokenConsumeDatabaseError(t *testing.T) {
	repo, mock, now := newTokenRepo(t)
	mock.ExpectQuery(consumeTokenSQL).
		WithArgs(true, false, hashToken("refresh-1"), now).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Consume(context.Background(), "refresh-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestTokenRevoke(t *testing.T) {
	revokeSQL := regexp.QuoteMeta(`UPDATE refresh_tokens SET is_revoked = $1 WHERE token_hash = $2`)

	repo, mock, _ := newTokenRepo(t)
	mock.ExpectExec(revokeSQL).WithArgs(true, hashToken("refresh-1")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Revoke(context.Background(), "refresh-1"))

	repo, mock, _ = newTokenRepo(t)
	mock.ExpectExec(revokeSQL).WithArgs(true, hashToken("nope")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Revoke(context.Background(), "nope"), apperrors.ErrTokenNotFound)
}
