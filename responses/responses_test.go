package responses

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	return c, w
}

func TestSendSuccessResponse_Writes200WithData(t *testing.T) {
	c, w := newTestContext()
	SendSuccessResponse(c, gin.H{"id": "abc"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"id":"abc"`)
}

func TestSendCreatedResponse_Writes201(t *testing.T) {
	c, w := newTestContext()
	SendCreatedResponse(c, gin.H{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestInvalidArgumentResponse_Writes400(t *testing.T) {
	c, w := newTestContext()
	InvalidArgumentResponse(c, "bad input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ARGUMENT")
	assert.Contains(t, w.Body.String(), "bad input")
}

func TestNotFoundResponse_Writes404(t *testing.T) {
	c, w := newTestContext()
	NotFoundResponse(c, "not here")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestInternalErrorResponse_Writes500(t *testing.T) {
	c, w := newTestContext()
	InternalErrorResponse(c, "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "STORE_UNAVAILABLE")
}
