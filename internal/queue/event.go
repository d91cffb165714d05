// Package queue carries auth activity and outbound SMS over RabbitMQ.
package queue

// Durable queues used by the service.
const (
    ActivityQueue = "auth.activity"
    SMSQueue      = "sms.outbound"
)

// ActivityEvent is published after a successful register, login, mobile
// login or admin creation.  Consumers can log or analyse it without
// reading the primary database.
type ActivityEvent struct {
    ActorID    uint64 `json:"actor_id"`
    Action     string `json:"action"`
    IP         string `json:"ip"`
    UserAgent  string `json:"user_agent"`
    OccurredAt string `json:"occurred_at"` // RFC 3339, UTC
}

// SMSMessage is one text message for the SMS gateway worker.
type SMSMessage struct {
    To   string `json:"to"`
    Body string `json:"body"`
}
