package dto

import "github.com/yigit/noteverse/internal/app/models"

// ProfileResponse is a user's public profile with activity counters
type ProfileResponse struct {
	User        *models.User     `json:"user"`
	Stats       models.UserStats `json:"stats"`
	IsFollowing bool             `json:"isFollowing"`
}

// UpdateProfileRequest is bound from the multipart profile form. The avatar
// itself travels in the "profilePic" file part.
type UpdateProfileRequest struct {
	Name           *string `form:"name" binding:"omitempty,min=1,max=100"`
	Email          *string `form:"email" binding:"omitempty,email,max=254"`
	Branch         *string `form:"branch" binding:"omitempty,max=100"`
	Year           *int    `form:"year" binding:"omitempty,min=1,max=6"`
	Semester       *int    `form:"semester" binding:"omitempty,min=1,max=12"`
	Password       *string `form:"password" binding:"omitempty,min=6"`
	ProfilePicture *string `form:"profilePicture"`
}

// ClearsAvatar reports whether the form asks to drop the current avatar
func (r UpdateProfileRequest) ClearsAvatar() bool {
	return r.ProfilePicture != nil && (*r.ProfilePicture == "" || *r.ProfilePicture == "null")
}

// UserListResponse represents a list of users with pagination
type UserListResponse struct {
	Users      []models.UserSummary `json:"users"`
	Pagination PaginationInfo       `json:"pagination"`
}

// FollowResponse reports the follow state after a follow or unfollow
type FollowResponse struct {
	Following bool  `json:"following"`
	Followers int64 `json:"followers"`
}
