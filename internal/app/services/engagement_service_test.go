package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/websocket"
)

func TestVoteToggles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	voter := e.store.addUser("Voter", "voter@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")

	state, err := e.engagement.Vote(ctx, res.ID, voter.ID, "up")
	require.NoError(t, err)
	assert.Equal(t, models.VoteUp, state.MyVote)
	assert.Equal(t, int64(1), state.Upvotes)

	state, err = e.engagement.Vote(ctx, res.ID, voter.ID, "up")
	require.NoError(t, err)
	assert.Equal(t, models.VoteNone, state.MyVote)
	assert.Zero(t, state.Upvotes)
	assert.Zero(t, state.Downvotes)

	_, err = e.engagement.Vote(ctx, res.ID, voter.ID, "up")
	require.NoError(t, err)
	state, err = e.engagement.Vote(ctx, res.ID, voter.ID, "downvote")
	require.NoError(t, err)
	assert.Equal(t, models.VoteDown, state.MyVote)
	assert.Zero(t, state.Upvotes)
	assert.Equal(t, int64(1), state.Downvotes)

	_, err = e.engagement.Vote(ctx, res.ID, voter.ID, "sideways")
	assert.ErrorIs(t, err, apperrors.ErrInvalidVote)
	_, err = e.engagement.Vote(ctx, 999, voter.ID, "up")
	assert.ErrorIs(t, err, apperrors.ErrStudyResourceNotFound)
}

func TestVoteNotifiesUploader(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	voter := e.store.addUser("Voter", "voter@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")

	_, err := e.engagement.Vote(ctx, res.ID, voter.ID, "up")
	require.NoError(t, err)
	got := e.notifier.received(owner.ID)
	require.Len(t, got, 1)
	assert.Equal(t, websocket.NotificationUpvote, got[0].Type)
	assert.Equal(t, "Voter", got[0].ActorName)
	assert.Equal(t, res.ID, got[0].ResourceID)

	// withdrawing is silent
	_, err = e.engagement.Vote(ctx, res.ID, voter.ID, "up")
	require.NoError(t, err)
	assert.Len(t, e.notifier.received(owner.ID), 1)

	// voting on your own upload is silent
	_, err = e.engagement.Vote(ctx, res.ID, owner.ID, "down")
	require.NoError(t, err)
	assert.Len(t, e.notifier.received(owner.ID), 1)
}

func TestListVoted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	voter := e.store.addUser("Voter", "voter@example.com", models.RoleUser)
	a := e.store.addResource(owner.ID, "a")
	b := e.store.addResource(owner.ID, "b")

	_, err := e.engagement.Vote(ctx, a.ID, voter.ID, "up")
	require.NoError(t, err)
	_, err = e.engagement.Vote(ctx, b.ID, voter.ID, "down")
	require.NoError(t, err)

	up, err := e.engagement.ListVoted(ctx, voter.ID, "up", 1, 10)
	require.NoError(t, err)
	require.Len(t, up.Resources, 1)
	assert.Equal(t, a.ID, up.Resources[0].ID)

	down, err := e.engagement.ListVoted(ctx, voter.ID, "down", 1, 10)
	require.NoError(t, err)
	require.Len(t, down.Resources, 1)
	assert.Equal(t, b.ID, down.Resources[0].ID)
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	author := e.store.addUser("Author", "author@example.com", models.RoleUser)
	stranger := e.store.addUser("Stranger", "stranger@example.com", models.RoleUser)
	admin := e.store.addUser("Admin", "admin@example.com", models.RoleAdmin)
	res := e.store.addResource(owner.ID, "notes")

	c1, err := e.engagement.AddComment(ctx, res.ID, author.ID, "  very helpful  ")
	require.NoError(t, err)
	assert.Equal(t, "very helpful", c1.Text)
	assert.Equal(t, "Author", c1.UserName)
	c2, err := e.engagement.AddComment(ctx, res.ID, author.ID, "second")
	require.NoError(t, err)

	notes := e.notifier.received(owner.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, websocket.NotificationComment, notes[0].Type)

	list, err := e.engagement.ListComments(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, list.Comments, 2)
	assert.Equal(t, c1.ID, list.Comments[0].ID)
	assert.Nil(t, list.Pagination)

	err = e.engagement.DeleteComment(ctx, c1.ID, authz.Actor{UserID: stranger.ID, Role: models.RoleUser})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	require.NoError(t, e.engagement.DeleteComment(ctx, c1.ID, authz.Actor{UserID: author.ID, Role: models.RoleUser}))
	require.NoError(t, e.engagement.DeleteComment(ctx, c2.ID, authz.Actor{UserID: admin.ID, Role: models.RoleAdmin}))
	assert.ErrorIs(t, e.engagement.DeleteComment(ctx, c2.ID, authz.Actor{UserID: admin.ID, Role: models.RoleAdmin}),
		apperrors.ErrCommentNotFound)

	_, err = e.engagement.ListComments(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrStudyResourceNotFound)
}

func TestAddCommentValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")

	_, err := e.engagement.AddComment(ctx, res.ID, owner.ID, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = e.engagement.AddComment(ctx, res.ID, owner.ID, strings.Repeat("ü", 1001))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = e.engagement.AddComment(ctx, res.ID, owner.ID, strings.Repeat("ü", 1000))
	assert.NoError(t, err)
	assert.Empty(t, e.notifier.received(owner.ID))
}

func TestListUserComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")
	for _, text := range []string{"one", "two", "three"} {
		_, err := e.engagement.AddComment(ctx, res.ID, owner.ID, text)
		require.NoError(t, err)
	}

	got, err := e.engagement.ListUserComments(ctx, owner.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 2)
	require.NotNil(t, got.Pagination)
	assert.Equal(t, int64(3), got.Pagination.TotalItems)
	assert.Equal(t, "three", got.Comments[0].Text)
}

func TestReportIsRecordedOncePerUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	reporter := e.store.addUser("Reporter", "reporter@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")

	created, err := e.engagement.Report(ctx, res.ID, reporter.ID, " wrong subject ")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.engagement.Report(ctx, res.ID, reporter.ID, "again")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, []string{"report"}, e.mailer.kinds())
	notes := e.notifier.received(owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, websocket.NotificationReport, notes[0].Type)

	stored, err := fakeResourceRepo{e.store}.GetByID(ctx, res.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ReportCount)

	_, err = e.engagement.Report(ctx, 999, reporter.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrStudyResourceNotFound)
}

func TestReportMailFailureDoesNotFailReport(t *testing.T) {
	e := newEnv(t)
	e.mailer.fail = true
	owner := e.store.addUser("Owner", "owner@example.com", models.RoleUser)
	reporter := e.store.addUser("Reporter", "reporter@example.com", models.RoleUser)
	res := e.store.addResource(owner.ID, "notes")

	created, err := e.engagement.Report(context.Background(), res.ID, reporter.ID, "spam")
	require.NoError(t, err)
	assert.True(t, created)
}
