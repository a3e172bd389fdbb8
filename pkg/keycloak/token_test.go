package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePermissions(t *testing.T) {
	token := rptWithPermissions(t, []map[string]interface{}{
		{"rsid": "rid-1", "rsname": "case-file:1", "scopes": []string{"case-file:read", "case-file:write"}},
		{"rsid": "rid-2", "rsname": "case-file:2"},
	})

	perms, present, err := DecodePermissions(token)
	require.NoError(t, err)
	assert.True(t, present)
	require.Len(t, perms, 2)
	assert.Equal(t, "rid-1", perms[0].ResourceID)
	assert.Equal(t, "case-file:1", perms[0].ResourceName)
	assert.Equal(t, []string{"case-file:read", "case-file:write"}, perms[0].Scopes)
	assert.Equal(t, "rid-2", perms[1].ResourceID)
	assert.Empty(t, perms[1].Scopes)
}

func TestDecodePermissions_ClaimAbsent(t *testing.T) {
	token := unsignedToken(t, map[string]interface{}{"sub": "user-1"})

	perms, present, err := DecodePermissions(token)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Empty(t, perms)
}

func TestDecodePermissions_ClaimPresentButEmpty(t *testing.T) {
	token := rptWithPermissions(t, []map[string]interface{}{})

	perms, present, err := DecodePermissions(token)
	require.NoError(t, err)
	assert.True(t, present, "an empty array is still a present claim")
	assert.Empty(t, perms)
}

func TestDecodePermissions_ClaimWrongShape(t *testing.T) {
	// permissions must be an array; a string there means the token is not
	// an RPT we understand
	token := unsignedToken(t, map[string]interface{}{
		"authorization": map[string]interface{}{"permissions": "everything"},
	})

	_, present, err := DecodePermissions(token)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestDecodePermissions_Malformed(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b", "x.y.z"} {
		_, _, err := DecodePermissions(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestDecodeSubject(t *testing.T) {
	token := unsignedToken(t, map[string]interface{}{"sub": "kc-user-9"})

	sub, err := DecodeSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "kc-user-9", sub)
}

func TestDecodeSubject_Missing(t *testing.T) {
	token := unsignedToken(t, map[string]interface{}{"aud": "docket-app"})

	_, err := DecodeSubject(token)
	assert.Error(t, err)
}
