package dto

import "github.com/yigit/noteverse/internal/app/models"

// AdminSearchRequest is the dashboard search box plus page number
type AdminSearchRequest struct {
	Query string `form:"q"`
	Page  int    `form:"page"`
}

// SendMailRequest is a message from an administrator to a user
type SendMailRequest struct {
	Subject string `json:"subject" binding:"required,max=200" example:"About your upload"`
	Message string `json:"message" binding:"required,max=10000"`
}

// SetRoleRequest changes a user's role
type SetRoleRequest struct {
	Role models.RoleType `json:"role" binding:"required,oneof=user admin operator" example:"operator"`
}

// ReportedListResponse is a page of reported resources
type ReportedListResponse struct {
	Items      []models.ReportedResource `json:"items"`
	Pagination PaginationInfo            `json:"pagination"`
}
