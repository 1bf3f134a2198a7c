package models

import "time"

// ResourceType classifies an uploaded study resource
type ResourceType string

const (
	ResourceTypeNotes         ResourceType = "notes"
	ResourceTypePYQ           ResourceType = "PYQ"
	ResourceTypeDPP           ResourceType = "DPP"
	ResourceTypeSyllabus      ResourceType = "syllabus"
	ResourceTypeMarkingScheme ResourceType = "marking-scheme"
	ResourceTypePrevYearPaper ResourceType = "prev-year-paper"
	ResourceTypeOther         ResourceType = "other"
)

// ResourceTypes lists every accepted resource type in display order.
var ResourceTypes = []ResourceType{
	ResourceTypeNotes,
	ResourceTypePYQ,
	ResourceTypeDPP,
	ResourceTypeSyllabus,
	ResourceTypeMarkingScheme,
	ResourceTypePrevYearPaper,
	ResourceTypeOther,
}

// Valid reports whether t is a known resource type
func (t ResourceType) Valid() bool {
	for _, known := range ResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Resource is an uploaded study file with its academic metadata.
// Upvotes, Downvotes, CommentCount and ReportCount are aggregated from the
// engagement tables; MyVote is only populated for an authenticated viewer.
type Resource struct {
	ID               int64        `json:"id" db:"id"`
	FileName         string       `json:"fileName" db:"file_name"`
	OriginalFilename string       `json:"originalFilename" db:"original_filename"`
	StorageKey       string       `json:"-" db:"storage_key"`
	URL              string       `json:"url" db:"url"`
	Course           string       `json:"course" db:"course"`
	Branch           string       `json:"branch" db:"branch"`
	Subject          string       `json:"subject" db:"subject"`
	Year             *int         `json:"year,omitempty" db:"year"`
	Semester         *int         `json:"semester,omitempty" db:"semester"`
	ResourceType     ResourceType `json:"resourceType" db:"resource_type"`
	SizeBytes        int64        `json:"sizeBytes" db:"size_bytes"`
	Downloads        int64        `json:"downloads" db:"downloads"`
	UploadedBy       int64        `json:"uploadedBy" db:"uploaded_by"`
	UploaderName     string       `json:"uploaderName" db:"uploader_name"`
	UploadedAt       time.Time    `json:"uploadedAt" db:"uploaded_at"`

	Upvotes      int64 `json:"upvotes"`
	Downvotes    int64 `json:"downvotes"`
	CommentCount int64 `json:"commentCount"`
	ReportCount  int64 `json:"reportCount"`
	MyVote       Vote  `json:"myVote"`
}

// ResourceFacets are the distinct filter values present in the library.
type ResourceFacets struct {
	Courses   []string       `json:"courses"`
	Branches  []string       `json:"branches"`
	Subjects  []string       `json:"subjects"`
	Years     []int          `json:"years"`
	Semesters []int          `json:"semesters"`
	Types     []ResourceType `json:"types"`
}
