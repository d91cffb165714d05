package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/model"
)

const (
    dialTimeout   = 3 * time.Second
    redialBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned while the broker is being redialed or
// a recent dial failed.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// dial opens a broker connection with a bounded TCP connect.
func dial(url string) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{
        Dial:      amqp.DefaultDial(dialTimeout),
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })
}

// Publisher sends persistent JSON messages to the default exchange.  One
// connection and one channel are shared; a closed channel or connection is
// reopened on the next publish.
type Publisher struct {
    url  string
    log  *zap.Logger
    dial func(string) (*amqp.Connection, error)
    now  func() time.Time

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
    dialing  bool
    nextDial time.Time
}

// NewPublisher dials the broker once so misconfiguration shows at startup.
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
    p := newPublisher(url, log, dial)
    if err := p.connect(); err != nil {
        return nil, err
    }
    return p, nil
}

func newPublisher(url string, log *zap.Logger, d func(string) (*amqp.Connection, error)) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log, dial: d, now: time.Now, declared: map[string]bool{}}
}

// connect makes sure a connection is open.  The dial runs without mu held
// and only one is in flight; other callers fail fast with
// ErrBrokerUnavailable meanwhile and for redialBackoff after a failure.
func (p *Publisher) connect() error {
    p.mu.Lock()
    if p.conn != nil && !p.conn.IsClosed() {
        p.mu.Unlock()
        return nil
    }
    if p.dialing || p.now().Before(p.nextDial) {
        p.mu.Unlock()
        return ErrBrokerUnavailable
    }
    p.dialing = true
    p.mu.Unlock()

    conn, err := p.dial(p.url)

    p.mu.Lock()
    defer p.mu.Unlock()
    p.dialing = false
    if err != nil {
        p.nextDial = p.now().Add(redialBackoff)
        p.log.Warn("rabbitmq dial failed", zap.Error(err))
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    p.conn = conn
    p.ch = nil
    p.declared = map[string]bool{}
    return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, v interface{}) error {
    body, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("marshal %s message: %w", queue, err)
    }
    if err := p.connect(); err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return ErrBrokerUnavailable
    }
    if p.ch == nil || p.ch.IsClosed() {
        ch, err := p.conn.Channel()
        if err != nil {
            return fmt.Errorf("rabbitmq channel: %w", err)
        }
        p.ch = ch
        p.declared = map[string]bool{}
    }
    if !p.declared[queue] {
        // durable so messages survive broker restarts
        if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        p.declared[queue] = true
    }
    return p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}

// Record publishes an activity to ActivityQueue.
func (p *Publisher) Record(ctx context.Context, a model.Activity) error {
    return p.publish(ctx, ActivityQueue, ActivityEvent{
        ActorID:    a.ActorID,
        Action:     a.Action,
        IP:         a.IP,
        UserAgent:  a.UserAgent,
        OccurredAt: a.CreatedAt.UTC().Format(time.RFC3339),
    })
}

// SendLoginCode queues the text message carrying a login code.
func (p *Publisher) SendLoginCode(ctx context.Context, mobile, code string) error {
    return p.publish(ctx, SMSQueue, SMSMessage{
        To:   mobile,
        Body: "Your login code is " + code,
    })
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn.Close()
    }
    return nil
}
