package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/sha256" // SHA‑256 hashing for refresh token rows
    "encoding/hex"
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"

    "github.com/iliyamo/matrimony-api/internal/model"
)

// Token types carried in the "type" claim.
const (
    TokenTypeAccess  = "access"
    TokenTypeRefresh = "refresh"
)

var (
    // ErrInvalidToken covers bad signatures, malformed tokens, wrong token
    // types and expired tokens.
    ErrInvalidToken = errors.New("invalid token")
    // ErrTokenExpired is returned (wrapped with ErrInvalidToken) for tokens
    // whose exp has passed, so callers may log the difference.
    ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
    UserID uint64     `json:"userId"`
    Role   model.Role `json:"role"`
    Type   string     `json:"type"`
    jwt.RegisteredClaims
}

// TokenPair is the result of issuing tokens for a user.
type TokenPair struct {
    AccessToken      string
    AccessExpiresAt  time.Time
    RefreshToken     string
    RefreshExpiresAt time.Time
}

// TokenManager signs and verifies access and refresh tokens.  The two token
// kinds use separate secrets so a leak of one cannot forge the other.
type TokenManager struct {
    accessSecret  []byte
    refreshSecret []byte
    accessTTL     time.Duration
    refreshTTL    time.Duration
    now           func() time.Time
}

// NewTokenManager builds a TokenManager.  Zero TTLs fall back to 7 days for
// access tokens and 30 days for refresh tokens.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
    if accessTTL <= 0 {
        accessTTL = 7 * 24 * time.Hour
    }
    if refreshTTL <= 0 {
        refreshTTL = 30 * 24 * time.Hour
    }
    return &TokenManager{
        accessSecret:  []byte(accessSecret),
        refreshSecret: []byte(refreshSecret),
        accessTTL:     accessTTL,
        refreshTTL:    refreshTTL,
        now:           time.Now,
    }
}

// Issue signs a new access/refresh pair for the user.
func (m *TokenManager) Issue(userID uint64, role model.Role) (TokenPair, error) {
    now := m.now().UTC()
    access, accessExp, err := m.sign(userID, role, TokenTypeAccess, m.accessSecret, now, m.accessTTL)
    if err != nil {
        return TokenPair{}, err
    }
    refresh, refreshExp, err := m.sign(userID, role, TokenTypeRefresh, m.refreshSecret, now, m.refreshTTL)
    if err != nil {
        return TokenPair{}, err
    }
    return TokenPair{
        AccessToken:      access,
        AccessExpiresAt:  accessExp,
        RefreshToken:     refresh,
        RefreshExpiresAt: refreshExp,
    }, nil
}

func (m *TokenManager) sign(userID uint64, role model.Role, typ string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
    exp := now.Add(ttl)
    claims := Claims{
        UserID: userID,
        Role:   role,
        Type:   typ,
        RegisteredClaims: jwt.RegisteredClaims{
            ID:        uuid.NewString(), // distinct tokens even when issued in the same second
            Subject:   strconv.FormatUint(userID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *TokenManager) VerifyAccess(raw string) (*Claims, error) {
    return m.verify(raw, m.accessSecret, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.  Access
// tokens are rejected even if someone signed them with the refresh secret.
func (m *TokenManager) VerifyRefresh(raw string) (*Claims, error) {
    return m.verify(raw, m.refreshSecret, TokenTypeRefresh)
}

func (m *TokenManager) verify(raw string, secret []byte, wantType string) (*Claims, error) {
    tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return secret, nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return nil, errors.Join(ErrInvalidToken, ErrTokenExpired)
        }
        return nil, ErrInvalidToken
    }
    claims, ok := tok.Claims.(*Claims)
    if !ok || !tok.Valid || claims.Type != wantType || claims.UserID == 0 || !claims.Role.Valid() {
        return nil, ErrInvalidToken
    }
    return claims, nil
}

// Decode parses a token without checking its signature.  It is for
// diagnostics only and must never drive an authorization decision.
func Decode(raw string) *Claims {
    claims := &Claims{}
    if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
        return nil
    }
    return claims
}

// HashToken returns the SHA‑256 hex digest stored for a refresh token, so a
// leaked table cannot be replayed.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
