package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/error/code"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestFailUsesMappedStatus(t *testing.T) {
	c, w := newContext()
	Fail(c, code.ErrDoorbellDisabled, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, code.ErrDoorbellDisabled, body.Code)
	assert.Equal(t, "doorbell is disabled", body.Message)
}

func TestNotFoundAndForbidden(t *testing.T) {
	c, w := newContext()
	NotFound(c, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext()
	Forbidden(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaginatedShape(t *testing.T) {
	c, w := newContext()
	Paginated(c, []int{1, 2, 3}, 21, 2, 10)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 21, body.Data["total"])
	assert.EqualValues(t, 3, body.Data["total_pages"])
	assert.EqualValues(t, 2, body.Data["page"])
}

func TestUnknownCodeDefaultsTo500(t *testing.T) {
	assert.Equal(t, code.StatusInternalServerError, code.GetStatus(999999))
	assert.Equal(t, "unknown error", code.GetMessage(999999))
}
