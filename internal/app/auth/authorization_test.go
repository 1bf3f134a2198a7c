package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
)

type stubResources map[int64]*models.Resource

func (s stubResources) GetByID(_ context.Context, id, _ int64) (*models.Resource, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, apperrors.ErrStudyResourceNotFound
}

type stubComments map[int64]*models.Comment

func (s stubComments) GetComment(_ context.Context, id int64) (*models.Comment, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrCommentNotFound
}

func TestValidateResourceOwnership(t *testing.T) {
	svc := NewAuthorizationService(
		stubResources{1: {ID: 1, UploadedBy: 10}},
		stubComments{},
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   Actor
		id      int64
		wantErr error
	}{
		{"owner", Actor{UserID: 10, Role: models.RoleUser}, 1, nil},
		{"admin", Actor{UserID: 2, Role: models.RoleAdmin}, 1, nil},
		{"operator", Actor{UserID: 3, Role: models.RoleOperator}, 1, nil},
		{"stranger", Actor{UserID: 4, Role: models.RoleUser}, 1, apperrors.ErrPermissionDenied},
		{"missing", Actor{UserID: 10, Role: models.RoleUser}, 99, apperrors.ErrStudyResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ValidateResourceOwnership(ctx, tt.id, tt.actor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, res.ID)
		})
	}
}

func TestValidateCommentOwnership(t *testing.T) {
	svc := NewAuthorizationService(stubResources{}, stubComments{5: {ID: 5, UserID: 7}})
	ctx := context.Background()

	_, err := svc.ValidateCommentOwnership(ctx, 5, Actor{UserID: 7, Role: models.RoleUser})
	assert.NoError(t, err)

	_, err = svc.ValidateCommentOwnership(ctx, 5, Actor{UserID: 8, Role: models.RoleUser})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.ValidateCommentOwnership(ctx, 6, Actor{UserID: 7, Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
}
