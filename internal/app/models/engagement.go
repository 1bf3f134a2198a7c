package models

import "time"

// Vote is a user's standing vote on a resource: -1, 0 or 1.
type Vote int

const (
	VoteDown Vote = -1
	VoteNone Vote = 0
	VoteUp   Vote = 1
)

// ParseVoteDirection maps "up"/"down" to a vote; anything else is rejected.
func ParseVoteDirection(direction string) (Vote, bool) {
	switch direction {
	case "up", "upvote":
		return VoteUp, true
	case "down", "downvote":
		return VoteDown, true
	}
	return VoteNone, false
}

// String returns the direction name used in the API.
func (v Vote) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	}
	return "none"
}

// NextVote applies a button press to the current vote. Pressing the active
// direction withdraws it; pressing the other direction switches, which
// removes the opposite vote in the same step.
func NextVote(current, requested Vote) Vote {
	if current == requested {
		return VoteNone
	}
	return requested
}

// VoteState is returned after a vote so clients can reconcile their counters.
type VoteState struct {
	ResourceID int64 `json:"resourceId"`
	Upvotes    int64 `json:"upvotes"`
	Downvotes  int64 `json:"downvotes"`
	MyVote     Vote  `json:"myVote"`
}

// Comment is a user comment on a resource.
type Comment struct {
	ID             int64     `json:"id" db:"id"`
	ResourceID     int64     `json:"resourceId" db:"resource_id"`
	UserID         int64     `json:"userId" db:"user_id"`
	UserName       string    `json:"userName" db:"user_name"`
	ProfilePicture *string   `json:"profilePicture" db:"profile_picture"`
	Text           string    `json:"text" db:"text"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Report records one user flagging a resource. A user reports a resource at most once.
type Report struct {
	ResourceID   int64     `json:"resourceId" db:"resource_id"`
	UserID       int64     `json:"userId" db:"user_id"`
	ReporterName string    `json:"reporterName" db:"reporter_name"`
	Reason       string    `json:"reason" db:"reason"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// ReportedResource groups the reports filed against one resource.
type ReportedResource struct {
	Resource Resource `json:"resource"`
	Reports  []Report `json:"reports"`
}
