package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, want := range []Role{RoleUser, RolePremium, RoleAdmin} {
		got, err := ParseRole(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "superuser", "Admin", "PREMIUM_USER"} {
		_, err := ParseRole(bad)
		assert.Error(t, err, "role %q must not parse", bad)
	}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.False(t, (&User{Role: RolePremium}).IsAdmin())
}
