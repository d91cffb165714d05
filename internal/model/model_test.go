package model

import (
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRoleTagsRoundTrip(t *testing.T) {
    for id := uint8(1); id <= 5; id++ {
        r, err := RoleFromID(id)
        require.NoError(t, err)
        assert.Equal(t, id, r.ID())

        parsed, err := ParseRole(r.String())
        require.NoError(t, err)
        assert.Equal(t, r, parsed)

        b, err := json.Marshal(r)
        require.NoError(t, err)
        var back Role
        require.NoError(t, json.Unmarshal(b, &back))
        assert.Equal(t, r, back)
    }
}

func TestParseRoleIsLenient(t *testing.T) {
    r, err := ParseRole(" Super_Admin ")
    require.NoError(t, err)
    assert.Equal(t, RoleSuperAdmin, r)

    _, err = ParseRole("root")
    assert.Error(t, err)
    _, err = RoleFromID(0)
    assert.Error(t, err)
    _, err = RoleFromID(9)
    assert.Error(t, err)
}

func TestRoleGroups(t *testing.T) {
    for _, r := range MemberRoles {
        assert.True(t, r.IsMember(), r.String())
        assert.False(t, r.IsAdmin(), r.String())
    }
    for _, r := range AdminRoles {
        assert.True(t, r.IsAdmin(), r.String())
        assert.False(t, r.IsMember(), r.String())
    }
    _, err := json.Marshal(Role(42))
    assert.Error(t, err)
}

func TestParseStatuses(t *testing.T) {
    st, err := ParseUserStatus("BLOCKED")
    require.NoError(t, err)
    assert.Equal(t, StatusBlocked, st)
    _, err = ParseUserStatus("deleted")
    assert.Error(t, err)

    cs, err := ParseConnectionStatus(" Accepted ")
    require.NoError(t, err)
    assert.Equal(t, ConnectionAccepted, cs)
    _, err = ParseConnectionStatus("maybe")
    assert.Error(t, err)
}
