package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(ValidationFailed(FieldErrors{"email": {"bad"}})))
	assert.Equal(t, KindNoRoles, KindOf(NoRolesAssigned(0)))
	assert.Equal(t, KindNotFound, KindOf(NotFound(3)))
	assert.Equal(t, KindStoreFailure, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("outer: %w", NotFound(9))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	require.NotNil(t, As(wrapped))
	assert.Equal(t, uint(9), As(wrapped).ID)
}

func TestStoreFailureUnwraps(t *testing.T) {
	cause := errors.New("conn reset")
	err := StoreFailure("list users failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "conn reset")
}

func TestNoRolesAssignedCarriesUser(t *testing.T) {
	err := NoRolesAssigned(5)
	assert.Equal(t, uint(5), err.UserID)
	assert.NotEmpty(t, err.Fields["assignees_roles"])
}

func TestParseStatus(t *testing.T) {
	cases := map[string]UserStatus{
		"active":      StatusActive,
		"1":           StatusActive,
		"Deactivated": StatusDeactivated,
		"0":           StatusDeactivated,
	}
	for in, want := range cases {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseStatus("banned")
	assert.False(t, ok)
}
