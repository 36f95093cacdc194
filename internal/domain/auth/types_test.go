package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		parsed, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRole("root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	// Roles are case-sensitive strings.
	_, err = ParseRole("Admin")
	require.Error(t, err)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Valid())
	assert.True(t, DefaultRole.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("nobody").Valid())
}

func TestClaimsExpired(t *testing.T) {
	now := time.Now()

	c := Claims{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, c.Expired(now))

	c = Claims{ExpiresAt: now.Add(-time.Second)}
	assert.True(t, c.Expired(now))

	// Zero expiry means no expiry check at this level.
	c = Claims{}
	assert.False(t, c.Expired(now))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jdoe", NormalizeUsername("  JDoe "))
	assert.Equal(t, "a@b.com", NormalizeEmail("A@B.COM"))
}

func TestRights(t *testing.T) {
	assert.Contains(t, Rights(RoleSuperAdmin), CapabilityAll)
	assert.Equal(t, []Capability{CapGetUsers}, Rights(RoleUser))
	assert.Nil(t, Rights(Role("nobody")))
}

func TestHasRights(t *testing.T) {
	// Wildcard grants everything, including capabilities not listed literally.
	assert.True(t, HasRights(RoleSuperAdmin, CapDeleteUsers))
	assert.True(t, HasRights(RoleSuperAdmin, Capability("somethingNew")))

	// Admin holds all concrete rights but not via wildcard.
	assert.True(t, HasRights(RoleAdmin, CapGetUsers, CapManageUsers))
	assert.False(t, HasRights(RoleAdmin, Capability("somethingNew")))

	// Every required capability must be present.
	assert.True(t, HasRights(RoleUser, CapGetUsers))
	assert.False(t, HasRights(RoleUser, CapGetUsers, CapManageUsers))

	// No requirements means authorized.
	assert.True(t, HasRights(RoleUser))

	// Unknown role holds nothing.
	assert.False(t, HasRights(Role("nobody"), CapGetUsers))
}
