package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
)

var (
	lockResourceSQL  = regexp.QuoteMeta(`SELECT id FROM resources WHERE id = $1 FOR UPDATE`)
	currentVoteSQL   = regexp.QuoteMeta(`SELECT value FROM votes WHERE resource_id = $1 AND user_id = $2`)
	upsertVoteSQL    = regexp.QuoteMeta(`INSERT INTO votes (resource_id, user_id, value) VALUES ($1, $2, $3) ON CONFLICT (resource_id, user_id) DO UPDATE`)
	deleteVoteSQL    = regexp.QuoteMeta(`DELETE FROM votes WHERE resource_id = $1 AND user_id = $2`)
	countVotesSQL    = regexp.QuoteMeta(`SELECT count(*) FILTER (WHERE value = 1), count(*) FILTER (WHERE value = -1) FROM votes WHERE resource_id = $1`)
	insertReportSQL  = regexp.QuoteMeta(`INSERT INTO reports (resource_id, user_id, reason) VALUES ($1, $2, $3) ON CONFLICT (resource_id, user_id) DO NOTHING RETURNING created_at`)
	insertCommentSQL = regexp.QuoteMeta(`INSERT INTO comments (resource_id, user_id, text) VALUES ($1, $2, $3)`)
)

func expectVoteLookup(mock pgxmock.PgxPoolIface, resourceID, userID int64, current int16) {
	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WithArgs(resourceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(resourceID))
	rows := pgxmock.NewRows([]string{"value"})
	if current != 0 {
		rows.AddRow(current)
	}
	mock.ExpectQuery(currentVoteSQL).WithArgs(resourceID, userID).WillReturnRows(rows)
}

func expectVoteCounts(mock pgxmock.PgxPoolIface, resourceID, up, down int64) {
	mock.ExpectQuery(countVotesSQL).WithArgs(resourceID).
		WillReturnRows(pgxmock.NewRows([]string{"up", "down"}).AddRow(up, down))
}

func TestToggleVote(t *testing.T) {
	tests := []struct {
		name      string
		current   int16
		requested models.Vote
		expect    func(mock pgxmock.PgxPoolIface)
		want      models.VoteState
	}{
		{
			name:      "first vote inserts",
			requested: models.VoteUp,
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(upsertVoteSQL).WithArgs(int64(5), int64(7), int16(1)).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				expectVoteCounts(mock, 5, 1, 0)
			},
			want: models.VoteState{ResourceID: 5, Upvotes: 1, MyVote: models.VoteUp},
		},
		{
			name:      "opposite vote switches",
			current:   1,
			requested: models.VoteDown,
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(upsertVoteSQL).WithArgs(int64(5), int64(7), int16(-1)).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				expectVoteCounts(mock, 5, 2, 1)
			},
			want: models.VoteState{ResourceID: 5, Upvotes: 2, Downvotes: 1, MyVote: models.VoteDown},
		},
		{
			name:      "same vote withdraws",
			current:   -1,
			requested: models.VoteDown,
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(deleteVoteSQL).WithArgs(int64(5), int64(7)).
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
				expectVoteCounts(mock, 5, 2, 0)
			},
			want: models.VoteState{ResourceID: 5, Upvotes: 2, MyVote: models.VoteNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			expectVoteLookup(mock, 5, 7, tt.current)
			tt.expect(mock)
			mock.ExpectCommit()

			state, err := NewEngagementRepository(mock).ToggleVote(context.Background(), 5, 7, tt.requested)

			require.NoError(t, err)
			assert.Equal(t, tt.want, *state)
		})
	}
}

func TestToggleVoteMissingResource(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WithArgs(int64(5)).WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewEngagementRepository(mock).ToggleVote(context.Background(), 5, 7, models.VoteUp)

	assert.ErrorIs(t, err, apperrors.ErrStudyResourceNotFound)
}

func TestToggleVoteDeletedVoter(t *testing.T) {
	mock := newMockPool(t)
	expectVoteLookup(mock, 5, 7, 0)
	mock.ExpectExec(upsertVoteSQL).WithArgs(int64(5), int64(7), int16(1)).
		WillReturnError(fkViolation("votes_user_id_fkey"))
	mock.ExpectRollback()

	_, err := NewEngagementRepository(mock).ToggleVote(context.Background(), 5, 7, models.VoteUp)

	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestToggleVoteRejectsNone(t *testing.T) {
	mock := newMockPool(t)

	_, err := NewEngagementRepository(mock).ToggleVote(context.Background(), 5, 7, models.VoteNone)

	assert.ErrorIs(t, err, apperrors.ErrInvalidVote)
}

func TestAddReport(t *testing.T) {
	reported := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("first report is stored", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(insertReportSQL).WithArgs(int64(5), int64(7), "spam").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(reported))

		report := &models.Report{ResourceID: 5, UserID: 7, Reason: "spam"}
		created, err := NewEngagementRepository(mock).AddReport(context.Background(), report)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, reported, report.CreatedAt)
	})

	t.Run("repeat report changes nothing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(insertReportSQL).WithArgs(int64(5), int64(7), "again").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}))

		created, err := NewEngagementRepository(mock).AddReport(context.Background(),
			&models.Report{ResourceID: 5, UserID: 7, Reason: "again"})

		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("foreign keys", func(t *testing.T) {
		for constraint, want := range map[string]error{
			"reports_resource_id_fkey": apperrors.ErrStudyResourceNotFound,
			"reports_user_id_fkey":     apperrors.ErrUserNotFound,
		} {
			mock := newMockPool(t)
			mock.ExpectQuery(insertReportSQL).WithArgs(int64(5), int64(7), "").
				WillReturnError(fkViolation(constraint))

			_, err := NewEngagementRepository(mock).AddReport(context.Background(),
				&models.Report{ResourceID: 5, UserID: 7})

			assert.ErrorIs(t, err, want, constraint)
		}
	})
}

func TestAddComment(t *testing.T) {
	t.Run("fills author details", func(t *testing.T) {
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		pic := "/files/profile-pictures/7.jpg"
		mock := newMockPool(t)
		mock.ExpectQuery(insertCommentSQL).WithArgs(int64(5), int64(7), "nice notes").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "name", "profile_picture"}).
				AddRow(int64(11), created, "Aditi", &pic))

		comment := &models.Comment{ResourceID: 5, UserID: 7, Text: "nice notes"}
		require.NoError(t, NewEngagementRepository(mock).AddComment(context.Background(), comment))

		assert.Equal(t, int64(11), comment.ID)
		assert.Equal(t, created, comment.CreatedAt)
		assert.Equal(t, "Aditi", comment.UserName)
		require.NotNil(t, comment.ProfilePicture)
		assert.Equal(t, pic, *comment.ProfilePicture)
	})

	tests := []struct {
		constraint string
		want       error
	}{
		{"comments_resource_id_fkey", apperrors.ErrStudyResourceNotFound},
		{"comments_user_id_fkey", apperrors.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			mock := newMockPool(t)
			mock.ExpectQuery(insertCommentSQL).WithArgs(int64(5), int64(7), "hi").
				WillReturnError(fkViolation(tt.constraint))

			err := NewEngagementRepository(mock).AddComment(context.Background(),
				&models.Comment{ResourceID: 5, UserID: 7, Text: "hi"})

			assert.ErrorIs(t, err, tt.want)
		})
	}
}
