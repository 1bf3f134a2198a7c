package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	assert.True(t, IsDuplicateConstraintError(err, "users_email_key"))
	assert.False(t, IsDuplicateConstraintError(err, "refresh_tokens_token_key"))
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestIsForeignKeyViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23503", ConstraintName: "votes_resource_id_fkey"}

	assert.True(t, IsForeignKeyViolation(err))
	assert.True(t, IsForeignKeyConstraintError(fmt.Errorf("vote: %w", err), "votes_resource_id_fkey"))
	assert.False(t, IsForeignKeyConstraintError(err, "votes_user_id_fkey"))
	assert.False(t, IsForeignKeyConstraintError(&pgconn.PgError{Code: "23505", ConstraintName: "votes_resource_id_fkey"}, "votes_resource_id_fkey"))
	assert.False(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
