package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataNeverNull(t *testing.T) {
	b, err := json.Marshal(Error(CodeNotFound, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":404,"msg":"Not Found","data":{}}`, string(b))
}

func TestSuccessMessage(t *testing.T) {
	r := Success("The user was successfully created.", map[string]int{"id": 1})
	assert.Equal(t, CodeOK, r.Code)
	assert.Equal(t, "The user was successfully created.", r.Msg)

	assert.Equal(t, "OK", Success("", nil).Msg)
}

func TestFailKeepsData(t *testing.T) {
	r := Fail(CodeBadRequest, "", map[string]string{"redirect": "back"})
	assert.Equal(t, "Bad Request", r.Msg)
	assert.Equal(t, map[string]string{"redirect": "back"}, r.Data)
}
