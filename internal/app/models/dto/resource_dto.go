package dto

import "github.com/yigit/noteverse/internal/app/models"

// UploadResourceRequest holds the metadata fields of the upload form; the PDF
// arrives in the "file" part
type UploadResourceRequest struct {
	FileName     string              `form:"fileName" binding:"max=255" example:"Operating Systems Unit 3"`
	Course       string              `form:"course" binding:"max=50" example:"Btech"`
	Branch       string              `form:"branch" binding:"max=100" example:"CSE"`
	Subject      string              `form:"subject" binding:"max=150" example:"Operating Systems"`
	Year         *int                `form:"year" binding:"omitempty,min=1,max=6" example:"2"`
	Semester     *int                `form:"semester" binding:"omitempty,min=1,max=12" example:"4"`
	ResourceType models.ResourceType `form:"resource_type" binding:"omitempty,resourcetype" example:"notes"`
}

// ResourceFilterRequest represents the library query string. Multi-valued
// filters are repeated keys (?branch=CSE&branch=ECE).
type ResourceFilterRequest struct {
	ResourceTypes []string `form:"resourceType"`
	Courses       []string `form:"course"`
	Branches      []string `form:"branch"`
	Year          *int     `form:"year"`
	Semester      *int     `form:"semester"`
	Subject       string   `form:"subject"`
	Query         string   `form:"q"`
	UploadedBy    *int64   `form:"uploadedBy"`
	SortBy        string   `form:"sortBy" binding:"omitempty,oneof=uploadedAt upvotes downloads fileName"`
	SortOrder     string   `form:"sortOrder" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page          int      `form:"page"`
	Size          int      `form:"size"`
}

// ResourceListResponse is a page of the resource library
type ResourceListResponse struct {
	Resources  []models.Resource `json:"resources"`
	Pagination PaginationInfo    `json:"pagination"`
}

// UploadResourceResponse is returned after a successful upload
type UploadResourceResponse struct {
	Message  string           `json:"message" example:"File uploaded successfully"`
	URL      string           `json:"url"`
	PublicID string           `json:"publicId" example:"study-resources/6f1c2b9e-1d7e-4c0f-9a55-3e0d3c1f2a11"`
	Resource *models.Resource `json:"resource"`
}

// DownloadResponse carries the link the client should follow
type DownloadResponse struct {
	URL       string `json:"url"`
	Downloads int64  `json:"downloads"`
}
