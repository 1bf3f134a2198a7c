package models

import "time"

// AuditFileType is the kind of raw upload kept in the audit store.
type AuditFileType string

const (
	AuditFilePDF AuditFileType = "pdf"
	AuditFileJPG AuditFileType = "jpg"
	AuditFilePNG AuditFileType = "png"
)

// UploadRecord is the audit trail entry written for every raw upload.
type UploadRecord struct {
	OriginalFileName string        `json:"originalFileName" bson:"original_file_name"`
	StorageKey       string        `json:"storageKey" bson:"storage_key"`
	FileType         AuditFileType `json:"fileType" bson:"file_type"`
	URL              string        `json:"url" bson:"secure_url"`
	ResourceID       int64         `json:"resourceId,omitempty" bson:"resource_id,omitempty"`
	UploadedByUser   int64         `json:"uploadedByUser" bson:"uploaded_by_user"`
	UploadedAt       time.Time     `json:"uploadedAt" bson:"uploaded_at"`
}

// ProfilePicture is the audit record of a user's current avatar; there is at most one per user.
type ProfilePicture struct {
	OriginalFileName string        `json:"originalFileName" bson:"original_file_name"`
	StorageKey       string        `json:"storageKey" bson:"storage_key"`
	FileType         AuditFileType `json:"fileType" bson:"file_type"`
	URL              string        `json:"url" bson:"secure_url"`
	UploadedByUser   int64         `json:"uploadedByUser" bson:"uploaded_by_user"`
	UploadedAt       time.Time     `json:"uploadedAt" bson:"uploaded_at"`
}
