package model

import (
    "fmt"
    "strings"
    "time"
)

// Role is the single representation of a user's role.  The numeric value
// is what the `users.role_id` column stores; the text tag is what tokens
// and JSON bodies carry.  roleTable is the only mapping between the two.
type Role uint8

const (
    RoleUnknown    Role = 0
    RoleSuperAdmin Role = 1
    RoleAdmin      Role = 2
    RoleUser       Role = 3
    RoleParent     Role = 4
    RoleBroker     Role = 5
)

var roleTable = map[Role]string{
    RoleSuperAdmin: "super-admin",
    RoleAdmin:      "admin",
    RoleUser:       "user",
    RoleParent:     "parent",
    RoleBroker:     "broker",
}

// MemberRoles are the roles a person may pick when registering.
var MemberRoles = []Role{RoleUser, RoleParent, RoleBroker}

// AdminRoles are the roles that may only be granted by a super admin.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// ParseRole resolves a text tag (case-insensitive, "_" accepted for "-").
func ParseRole(s string) (Role, error) {
    tag := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
    for r, name := range roleTable {
        if name == tag {
            return r, nil
        }
    }
    return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

// RoleFromID resolves a role_id column value.
func RoleFromID(id uint8) (Role, error) {
    r := Role(id)
    if _, ok := roleTable[r]; !ok {
        return RoleUnknown, fmt.Errorf("unknown role id %d", id)
    }
    return r, nil
}

func (r Role) ID() uint8 { return uint8(r) }

func (r Role) String() string {
    if name, ok := roleTable[r]; ok {
        return name
    }
    return "unknown"
}

func (r Role) Valid() bool {
    _, ok := roleTable[r]
    return ok
}

func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

func (r Role) IsMember() bool { return r == RoleUser || r == RoleParent || r == RoleBroker }

// MarshalText encodes the role as its text tag.
func (r Role) MarshalText() ([]byte, error) {
    if !r.Valid() {
        return nil, fmt.Errorf("invalid role %d", uint8(r))
    }
    return []byte(r.String()), nil
}

// UnmarshalText accepts a text tag.
func (r *Role) UnmarshalText(b []byte) error {
    parsed, err := ParseRole(string(b))
    if err != nil {
        return err
    }
    *r = parsed
    return nil
}

// UserStatus is the account lifecycle state stored in users.status.
type UserStatus string

const (
    StatusPending  UserStatus = "pending"
    StatusActive   UserStatus = "active"
    StatusVerified UserStatus = "verified"
    StatusBlocked  UserStatus = "blocked"
)

func ParseUserStatus(s string) (UserStatus, error) {
    switch st := UserStatus(strings.ToLower(strings.TrimSpace(s))); st {
    case StatusPending, StatusActive, StatusVerified, StatusBlocked:
        return st, nil
    }
    return "", fmt.Errorf("unknown status %q", s)
}

// User mirrors the `users` table.
//
// Fields:
//  Email        – unique, compared exactly as stored.
//  PasswordHash – bcrypt hash; never plaintext once migrated.
//  Mobile       – digits only, including any country prefix.
//  LoginCode    – one-time mobile login code, nil once consumed.
type User struct {
    ID                 uint64
    Email              string
    PasswordHash       string
    Role               Role
    Status             UserStatus
    FirstName          string
    LastName           string
    Mobile             string
    LoginCode          *string
    LoginCodeExpiresAt *time.Time
    CreatedAt          time.Time
    UpdatedAt          time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the signed token is stored.
type RefreshToken struct {
    ID        uint64
    UserID    uint64
    TokenHash string
    ExpiresAt time.Time
    RevokedAt *time.Time
    CreatedAt time.Time
}
