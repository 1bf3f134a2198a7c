package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

type fakeCourses struct {
	byName map[string]models.Course
	fail   error
}

func (f *fakeCourses) Upsert(_ context.Context, c *models.Course) error {
	if f.fail != nil {
		return f.fail
	}
	if f.byName == nil {
		f.byName = map[string]models.Course{}
	}
	c.ID = int64(len(f.byName) + 1)
	f.byName[c.Name] = *c
	return nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	u.ID = int64(len(f.users) + 1)
	f.users[u.Email] = u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) UpdateRole(_ context.Context, id int64, role models.RoleType) error {
	for _, u := range f.users {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return apperrors.ErrUserNotFound
}

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func TestSeedCourses(t *testing.T) {
	repo := &fakeCourses{}
	require.NoError(t, SeedCourses(context.Background(), repo, zerolog.Nop()))

	btech, ok := repo.byName["Btech"]
	require.True(t, ok)
	assert.Equal(t, []string{"CSE", "CSE-AI", "ECE", "EEE", "ME", "CE"}, btech.Branches)
	assert.Contains(t, btech.Subjects, "Operating Systems")

	// the package-level taxonomy is not mutated by the upsert
	assert.Zero(t, Courses[0].ID)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	users := &fakeUsers{users: map[string]*models.User{}}

	created, err := EnsureAdmin(ctx, users, Admin{Email: " Admin@Noteverse.test ", Password: "secret123"}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, created)

	admin := users.users["admin@noteverse.test"]
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, auth.CheckPassword(admin.Password, "secret123"))

	created, err = EnsureAdmin(ctx, users, Admin{Email: "admin@noteverse.test", Password: "secret123"}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, users.users, 1)
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"ravi@example.com": {ID: 1, Email: "ravi@example.com", Role: models.RoleUser},
	}}

	created, err := EnsureAdmin(context.Background(), users, Admin{Email: "ravi@example.com"}, zerolog.Nop())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.RoleAdmin, users.users["ravi@example.com"].Role)
}

func TestEnsureAdminRejectsWeakPassword(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{}}

	_, err := EnsureAdmin(context.Background(), users, Admin{Email: "admin@noteverse.test", Password: "123"}, zerolog.Nop())

	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Empty(t, users.users)
}

func TestRunCollectsErrors(t *testing.T) {
	boom := errors.New("db down")
	users := &fakeUsers{users: map[string]*models.User{}}

	err := Run(context.Background(), &fakeCourses{fail: boom}, users, Admin{Email: "admin@noteverse.test", Password: "secret123"}, zerolog.Nop())

	assert.ErrorIs(t, err, boom)
	assert.Len(t, users.users, 1)
}
