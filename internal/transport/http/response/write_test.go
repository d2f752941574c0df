package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteRecordsCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Write(c, Error(CodeNotFound, ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeNotFound, CodeOf(c))
	assert.JSONEq(t, `{"code":404,"msg":"Not Found","data":{}}`, w.Body.String())
}

func TestCodeOf_FallsBackToStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	assert.Equal(t, CodeOK, CodeOf(c))

	c.Status(http.StatusNoContent)
	assert.Equal(t, http.StatusNoContent, CodeOf(c))
}
