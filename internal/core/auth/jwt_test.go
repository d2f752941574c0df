package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTer() *JWTer {
	return &JWTer{Secret: []byte("s3cret"), Issuer: "rbac-vault", TTL: time.Hour}
}

func TestIssueAndParse(t *testing.T) {
	j := newJWTer()
	tok, err := j.Issue(42, RoleAdmin)
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, c.Role)
	uid, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
}

func TestParseRejectsOtherIssuerAndSecret(t *testing.T) {
	tok, err := newJWTer().Issue(1, RoleUser)
	require.NoError(t, err)

	other := newJWTer()
	other.Issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.Error(t, err)

	wrong := newJWTer()
	wrong.Secret = []byte("nope")
	_, err = wrong.Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	j := newJWTer()
	j.TTL = -2 * time.Minute // 超过 60s 的 leeway
	tok, err := j.Issue(1, RoleAdmin)
	require.NoError(t, err)
	_, err = newJWTer().Parse(tok)
	assert.Error(t, err)
}

func TestIssueWithoutSecret(t *testing.T) {
	_, err := (&JWTer{Issuer: "x", TTL: time.Minute}).Issue(1, RoleUser)
	assert.Error(t, err)
}
