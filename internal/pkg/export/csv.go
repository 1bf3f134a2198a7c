package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/yigit/noteverse/internal/app/models"
)

var (
	userColumns     = []string{"ID", "Name", "Email", "College", "Course", "Year", "Upvotes", "JoinedDate"}
	resourceColumns = []string{"ID", "FileName", "ResourceType", "Course", "Upvotes", "Downvotes", "UploadedAt"}
)

// WriteUsersCSV writes the admin user export.
func WriteUsersCSV(w io.Writer, users []models.UserSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(userColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, u := range users {
		record := []string{
			strconv.FormatInt(u.ID, 10),
			u.Name,
			u.Email,
			u.College,
			u.Course,
			optionalInt(u.Year),
			strconv.FormatInt(u.Upvotes, 10),
			u.CreatedAt.UTC().Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write user %d: %w", u.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResourcesCSV writes the admin resource export.
func WriteResourcesCSV(w io.Writer, resources []models.Resource) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resourceColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range resources {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.FileName,
			string(r.ResourceType),
			r.Course,
			strconv.FormatInt(r.Upvotes, 10),
			strconv.FormatInt(r.Downvotes, 10),
			r.UploadedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write resource %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
