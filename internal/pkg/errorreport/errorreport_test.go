package errorreport

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRollbarReporterWithoutToken(t *testing.T) {
	r := NewRollbarReporter(Config{Environment: "test"})
	assert.IsType(t, Noop{}, r)
}

func TestArgs(t *testing.T) {
	err := errors.New("boom")
	req := httptest.NewRequest("GET", "/api/v1/resources", nil)

	assert.Equal(t, []interface{}{err}, args(nil, err, nil))

	got := args(req, err, map[string]interface{}{"userId": int64(3)})
	assert.Len(t, got, 3)
	assert.Same(t, req, got[1])
}
