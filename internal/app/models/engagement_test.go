package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextVote(t *testing.T) {
	tests := []struct {
		name      string
		current   Vote
		requested Vote
		want      Vote
	}{
		{"first upvote", VoteNone, VoteUp, VoteUp},
		{"first downvote", VoteNone, VoteDown, VoteDown},
		{"upvote again withdraws", VoteUp, VoteUp, VoteNone},
		{"downvote again withdraws", VoteDown, VoteDown, VoteNone},
		{"switch up to down", VoteUp, VoteDown, VoteDown},
		{"switch down to up", VoteDown, VoteUp, VoteUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextVote(tt.current, tt.requested))
		})
	}
}

func TestToggleTwiceRestoresState(t *testing.T) {
	for _, press := range []Vote{VoteUp, VoteDown} {
		assert.Equal(t, VoteNone, NextVote(NextVote(VoteNone, press), press))
	}
	// an active vote pressed twice is withdrawn then cast again
	assert.Equal(t, VoteUp, NextVote(NextVote(VoteUp, VoteUp), VoteUp))
}

func TestParseVoteDirection(t *testing.T) {
	v, ok := ParseVoteDirection("up")
	assert.True(t, ok)
	assert.Equal(t, VoteUp, v)

	v, ok = ParseVoteDirection("downvote")
	assert.True(t, ok)
	assert.Equal(t, VoteDown, v)

	_, ok = ParseVoteDirection("sideways")
	assert.False(t, ok)

	assert.Equal(t, "none", VoteNone.String())
}

func TestResourceTypeValid(t *testing.T) {
	assert.True(t, ResourceTypePYQ.Valid())
	assert.True(t, ResourceType("marking-scheme").Valid())
	assert.False(t, ResourceType("pyq").Valid())
	assert.False(t, ResourceType("").Valid())
}

func TestRoleType(t *testing.T) {
	assert.True(t, RoleOperator.Valid())
	assert.False(t, RoleType("root").Valid())
	assert.True(t, RoleAdmin.CanModerate())
	assert.True(t, RoleOperator.CanModerate())
	assert.False(t, RoleUser.CanModerate())
}
