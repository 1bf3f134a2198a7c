package dto

import "github.com/yigit/noteverse/internal/app/models"

// VoteRequest casts, switches or withdraws a vote
type VoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down upvote downvote" example:"up"`
}

// CommentRequest adds a comment to a resource
type CommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=1000" example:"Unit 4 is missing a page"`
}

// ReportRequest flags a resource for moderators
type ReportRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Wrong subject"`
}

// ReportResponse tells the client whether this was a new report
type ReportResponse struct {
	Reported bool `json:"reported"`
}

// CommentListResponse is a list of comments; user comment history is paginated
type CommentListResponse struct {
	Comments   []models.Comment `json:"comments"`
	Pagination *PaginationInfo  `json:"pagination,omitempty"`
}
