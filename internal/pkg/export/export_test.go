package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/noteverse/internal/app/models"
)

func intPtr(v int) *int { return &v }

func TestWriteUsersCSV(t *testing.T) {
	var buf bytes.Buffer
	joined := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	err := WriteUsersCSV(&buf, []models.UserSummary{
		{ID: 1, Name: "Aditi, S", Email: "aditi@example.com", College: "University of Lucknow", Course: "Btech", Year: intPtr(2), Upvotes: 4, CreatedAt: joined},
		{ID: 2, Name: "Ravi", Email: "ravi@example.com", CreatedAt: joined},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Name", "Email", "College", "Course", "Year", "Upvotes", "JoinedDate"}, records[0])
	assert.Equal(t, []string{"1", "Aditi, S", "aditi@example.com", "University of Lucknow", "Btech", "2", "4", "2024-08-01"}, records[1])
	assert.Equal(t, "", records[2][5])
}

func TestWriteResourcesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResourcesCSV(&buf, []models.Resource{{
		ID: 9, FileName: "OS notes", ResourceType: models.ResourceTypeNotes, Course: "Btech",
		Upvotes: 3, Downvotes: 1, UploadedAt: time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "FileName", "ResourceType", "Course", "Upvotes", "Downvotes", "UploadedAt"}, records[0])
	assert.Equal(t, []string{"9", "OS notes", "notes", "Btech", "3", "1", "2024-09-02T08:30:00Z"}, records[1])
}

func TestWriteReportPDF(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReportPDF(&buf, ReportData{
		GeneratedAt:    time.Now(),
		TotalUsers:     12,
		TotalResources: 30,
		TopResources:   []models.Resource{{ID: 1, FileName: "DBMS unit 2", ResourceType: models.ResourceTypePYQ, Upvotes: 10}},
		MostReported: []models.ReportedResource{{
			Resource: models.Resource{ID: 4, FileName: "Blurry scan"},
			Reports:  []models.Report{{Reason: "unreadable"}},
		}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
