package utils

import (
    "strconv"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/matrimony-api/internal/model"
)

const (
    testAccessSecret  = "access-secret-0123456789"
    testRefreshSecret = "refresh-secret-0123456789"
)

func newTestManager() *TokenManager {
    return NewTokenManager(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)
}

func TestIssueAndVerifyCarriesRole(t *testing.T) {
    m := newTestManager()
    for _, role := range []model.Role{model.RoleUser, model.RoleParent, model.RoleBroker, model.RoleAdmin, model.RoleSuperAdmin} {
        pair, err := m.Issue(42, role)
        require.NoError(t, err)

        claims, err := m.VerifyAccess(pair.AccessToken)
        require.NoError(t, err, role.String())
        assert.Equal(t, uint64(42), claims.UserID)
        assert.Equal(t, role, claims.Role)
        assert.Equal(t, TokenTypeAccess, claims.Type)
        assert.Equal(t, strconv.Itoa(42), claims.Subject)

        rc, err := m.VerifyRefresh(pair.RefreshToken)
        require.NoError(t, err)
        assert.Equal(t, TokenTypeRefresh, rc.Type)
        assert.Equal(t, role, rc.Role)
    }
}

func TestDefaultTTLs(t *testing.T) {
    m := NewTokenManager(testAccessSecret, testRefreshSecret, 0, 0)
    fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    m.now = func() time.Time { return fixed }

    pair, err := m.Issue(1, model.RoleUser)
    require.NoError(t, err)
    assert.True(t, pair.AccessExpiresAt.Equal(fixed.Add(7*24*time.Hour)))
    assert.True(t, pair.RefreshExpiresAt.Equal(fixed.Add(30*24*time.Hour)))
}

func TestVerifyFailsAfterExpiry(t *testing.T) {
    m := newTestManager()
    issued := time.Now()
    m.now = func() time.Time { return issued }
    pair, err := m.Issue(7, model.RoleUser)
    require.NoError(t, err)

    m.now = func() time.Time { return issued.Add(2 * time.Hour) }
    _, err = m.VerifyAccess(pair.AccessToken)
    assert.ErrorIs(t, err, ErrInvalidToken)
    assert.ErrorIs(t, err, ErrTokenExpired)

    // refresh lives longer
    _, err = m.VerifyRefresh(pair.RefreshToken)
    assert.NoError(t, err)

    m.now = func() time.Time { return issued.Add(25 * time.Hour) }
    _, err = m.VerifyRefresh(pair.RefreshToken)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTypeConfusionRejectedBothWays(t *testing.T) {
    m := newTestManager()
    pair, err := m.Issue(9, model.RoleUser)
    require.NoError(t, err)

    _, err = m.VerifyAccess(pair.RefreshToken)
    assert.ErrorIs(t, err, ErrInvalidToken, "refresh token used as access")
    _, err = m.VerifyRefresh(pair.AccessToken)
    assert.ErrorIs(t, err, ErrInvalidToken, "access token used as refresh")
}

func TestTypeClaimCheckedEvenWithRightSecret(t *testing.T) {
    m := newTestManager()
    // an "access" token signed with the refresh secret must not pass as refresh
    forged, _, err := m.sign(9, model.RoleUser, TokenTypeAccess, m.refreshSecret, time.Now(), time.Hour)
    require.NoError(t, err)
    _, err = m.VerifyRefresh(forged)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTampering(t *testing.T) {
    m := newTestManager()
    pair, err := m.Issue(3, model.RoleUser)
    require.NoError(t, err)

    other := NewTokenManager("another-access-secret-xx", testRefreshSecret, time.Hour, time.Hour)
    _, err = other.VerifyAccess(pair.AccessToken)
    assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

    _, err = m.VerifyAccess(pair.AccessToken[:len(pair.AccessToken)-2] + "xx")
    assert.ErrorIs(t, err, ErrInvalidToken, "bad signature")

    _, err = m.VerifyAccess("not.a.jwt")
    assert.ErrorIs(t, err, ErrInvalidToken)

    none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 3, Role: model.RoleAdmin, Type: TokenTypeAccess})
    raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    _, err = m.VerifyAccess(raw)
    assert.ErrorIs(t, err, ErrInvalidToken, "alg=none")
}

func TestVerifyRejectsUnknownRoleAndZeroUser(t *testing.T) {
    m := newTestManager()
    exp := time.Now().Add(time.Hour).Unix()
    for _, claims := range []jwt.MapClaims{
        {"userId": 0, "role": "user", "type": TokenTypeAccess, "exp": exp},
        {"userId": 5, "role": "emperor", "type": TokenTypeAccess, "exp": exp},
        {"userId": 5, "type": TokenTypeAccess, "exp": exp},
    } {
        raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
        require.NoError(t, err)
        _, err = m.VerifyAccess(raw)
        assert.ErrorIs(t, err, ErrInvalidToken, "%v", claims)
    }
}

func TestDecodeIsBestEffort(t *testing.T) {
    m := newTestManager()
    pair, err := m.Issue(11, model.RoleBroker)
    require.NoError(t, err)

    c := Decode(pair.AccessToken)
    require.NotNil(t, c)
    assert.Equal(t, uint64(11), c.UserID)
    assert.Equal(t, model.RoleBroker, c.Role)

    assert.Nil(t, Decode("garbage"))
}

func TestTokensAreUnique(t *testing.T) {
    m := newTestManager()
    a, err := m.Issue(1, model.RoleUser)
    require.NoError(t, err)
    b, err := m.Issue(1, model.RoleUser)
    require.NoError(t, err)
    assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
    assert.NotEqual(t, HashToken(a.RefreshToken), HashToken(b.RefreshToken))
    assert.Len(t, HashToken(a.RefreshToken), 64)
}
