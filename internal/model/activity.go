package model

import "time"

// Activity actions recorded by the auth flows.
const (
    ActionRegister    = "register"
    ActionLogin       = "login"
    ActionMobileLogin = "mobile_login"
    ActionAddAdmin    = "add_admin"
)

// Activity is one audit record: who did what, when, and from where.
type Activity struct {
    ActorID   uint64    `json:"actor_id"`
    Action    string    `json:"action"`
    IP        string    `json:"ip"`
    UserAgent string    `json:"user_agent"`
    CreatedAt time.Time `json:"created_at"`
}

// Origin describes where a request came from.
type Origin struct {
    IP        string
    UserAgent string
}
