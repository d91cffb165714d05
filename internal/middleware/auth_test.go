package middleware

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/model"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/utils"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
    t.Helper()
    var env response.Envelope
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
    return env
}

func newGuardedEcho(tm *utils.TokenManager, m *metrics.Metrics, roles ...model.Role) *echo.Echo {
    e := echo.New()
    e.GET("/protected", func(c echo.Context) error {
        id, _ := CurrentIdentity(c)
        return c.JSON(http.StatusOK, map[string]interface{}{"user_id": id.UserID, "role": id.Role})
    }, JWTAuth(tm, nil, m), RequireRole(nil, m, roles...))
    return e
}

func TestJWTAndRoleGuards(t *testing.T) {
    tm := utils.NewTokenManager("access-secret-for-tests", "refresh-secret-for-tests", time.Hour, time.Hour)
    m := metrics.New(prometheus.NewRegistry())
    e := newGuardedEcho(tm, m, model.RoleAdmin, model.RoleSuperAdmin)

    member, err := tm.Issue(5, model.RoleUser)
    require.NoError(t, err)
    admin, err := tm.Issue(6, model.RoleAdmin)
    require.NoError(t, err)

    tests := []struct {
        name   string
        header string
        status int
        code   string
    }{
        {"no header", "", http.StatusUnauthorized, response.CodeUnauthenticated},
        {"wrong scheme", "Basic abc", http.StatusUnauthorized, response.CodeUnauthenticated},
        {"empty bearer", "Bearer ", http.StatusUnauthorized, response.CodeUnauthenticated},
        {"garbage token", "Bearer not-a-token", http.StatusForbidden, response.CodeInvalidToken},
        {"refresh as access", "Bearer " + admin.RefreshToken, http.StatusForbidden, response.CodeInvalidToken},
        {"member on admin route", "Bearer " + member.AccessToken, http.StatusForbidden, response.CodeInsufficientPermissions},
        {"admin", "bearer " + admin.AccessToken, http.StatusOK, ""},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, "/protected", nil)
            if tt.header != "" {
                req.Header.Set(echo.HeaderAuthorization, tt.header)
            }
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)

            assert.Equal(t, tt.status, rec.Code)
            if tt.code != "" {
                env := decodeEnvelope(t, rec)
                assert.False(t, env.Success)
                assert.Equal(t, tt.code, env.Error)
            }
        })
    }

    assert.Equal(t, 3.0, testutil.ToFloat64(m.AuthzDeniedTotal.WithLabelValues("missing_token")))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDeniedTotal.WithLabelValues("insufficient_permissions")))
}

func TestJWTDistinguishesExpiredTokens(t *testing.T) {
    tm := utils.NewTokenManager("access-secret-for-tests", "refresh-secret-for-tests", time.Nanosecond, time.Hour)
    m := metrics.New(prometheus.NewRegistry())
    e := newGuardedEcho(tm, m, model.RoleUser)

    pair, err := tm.Issue(5, model.RoleUser)
    require.NoError(t, err)
    time.Sleep(1100 * time.Millisecond)

    req := httptest.NewRequest(http.MethodGet, "/protected", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDeniedTotal.WithLabelValues("expired_token")))
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(nil, nil, model.RoleUser))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
