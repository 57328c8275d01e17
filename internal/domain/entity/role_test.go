package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoles_Primary(t *testing.T) {
	t.Run("first role wins", func(t *testing.T) {
		roles := Roles{RoleAdmin, RoleUser}

		primary, ok := roles.Primary()
		assert.True(t, ok)
		assert.Equal(t, RoleAdmin, primary)
	})

	t.Run("empty roles", func(t *testing.T) {
		primary, ok := Roles{}.Primary()
		assert.False(t, ok)
		assert.Empty(t, primary)
	})
}

func TestRoles_Contains(t *testing.T) {
	roles := Roles{RoleUser}

	assert.True(t, roles.Contains(RoleUser))
	assert.False(t, roles.Contains(RoleAdmin))
}

func TestRolesFromStrings_RoundTrip(t *testing.T) {
	roles := RolesFromStrings([]string{"Admin", "User"})

	assert.Equal(t, Roles{RoleAdmin, RoleUser}, roles)
	assert.Equal(t, []string{"Admin", "User"}, roles.ToStrings())
}
