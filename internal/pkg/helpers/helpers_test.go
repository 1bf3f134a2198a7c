package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantOffset uint64
		wantLimit  int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 5, 10, 5},
		{"zero page falls back to first", 0, 5, 0, 5},
		{"oversized page size", 2, 1000, uint64(DefaultPageSize), DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := CalculateOffsetLimit(tt.page, tt.size)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(11, 2, 5)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)
	assert.Equal(t, int64(11), info.TotalItems)

	empty := NewPaginationInfo(0, 1, 5)
	assert.Equal(t, 1, empty.TotalPages)

	clamped := NewPaginationInfo(4, 9, 5)
	assert.Equal(t, 1, clamped.CurrentPage)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=abc&size=500", nil)

	page, size := ParsePaginationParams(c)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultPageSize, size)

	c.Request = httptest.NewRequest(http.MethodGet, "/?page=4&size=20", nil)
	page, size = ParsePaginationParams(c)
	assert.Equal(t, 4, page)
	assert.Equal(t, 20, size)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%os notes%", LikePattern("  os notes "))
	assert.Equal(t, `%100\%\_sure%`, LikePattern("100%_sure"))
}

func TestNonEmpty(t *testing.T) {
	assert.Equal(t, []string{"CSE", "ECE"}, NonEmpty([]string{" CSE", "", "  ", "ECE"}))
}
