package model

import (
    "fmt"
    "strings"
    "time"
)

// ConnectionStatus is the state of a connection request.  Only
// pending -> accepted and pending -> rejected exist; both are terminal.
type ConnectionStatus string

const (
    ConnectionPending  ConnectionStatus = "pending"
    ConnectionAccepted ConnectionStatus = "accepted"
    ConnectionRejected ConnectionStatus = "rejected"
    ConnectionBlocked  ConnectionStatus = "blocked"
)

func ParseConnectionStatus(s string) (ConnectionStatus, error) {
    switch st := ConnectionStatus(strings.ToLower(strings.TrimSpace(s))); st {
    case ConnectionPending, ConnectionAccepted, ConnectionRejected, ConnectionBlocked:
        return st, nil
    }
    return "", fmt.Errorf("unknown connection status %q", s)
}

// Connection mirrors the `connections` table.
type Connection struct {
    ID         uint64           `json:"id"`
    SenderID   uint64           `json:"sender_id"`
    ReceiverID uint64           `json:"receiver_id"`
    Status     ConnectionStatus `json:"status"`
    CreatedAt  time.Time        `json:"created_at"`
    UpdatedAt  time.Time        `json:"updated_at"`
}
