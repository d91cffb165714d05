package queue

import (
    "context"
    "errors"
    "sync/atomic"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/matrimony-api/internal/model"
)

func TestPublisherDialDoesNotBlockOtherCallers(t *testing.T) {
    release := make(chan struct{})
    started := make(chan struct{})
    var dials int32
    p := newPublisher("amqp://broker", nil, func(string) (*amqp.Connection, error) {
        if atomic.AddInt32(&dials, 1) == 1 {
            close(started)
        }
        <-release
        return nil, errors.New("connection refused")
    })

    first := make(chan error, 1)
    go func() { first <- p.Record(context.Background(), model.Activity{ActorID: 1, Action: "login"}) }()
    <-started

    done := make(chan error, 1)
    go func() { done <- p.SendLoginCode(context.Background(), "09120000000", "ABC123") }()
    select {
    case err := <-done:
        assert.ErrorIs(t, err, ErrBrokerUnavailable)
    case <-time.After(time.Second):
        t.Fatal("second publish waited on the in-flight dial")
    }

    close(release)
    err := <-first
    require.Error(t, err)
    assert.Contains(t, err.Error(), "rabbitmq dial")
    assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestPublisherBacksOffAfterFailedDial(t *testing.T) {
    var dials int32
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    p := newPublisher("amqp://broker", nil, func(string) (*amqp.Connection, error) {
        atomic.AddInt32(&dials, 1)
        return nil, errors.New("connection refused")
    })
    p.now = func() time.Time { return now }

    require.Error(t, p.Record(context.Background(), model.Activity{ActorID: 1}))
    for i := 0; i < 5; i++ {
        assert.ErrorIs(t, p.Record(context.Background(), model.Activity{ActorID: 1}), ErrBrokerUnavailable)
    }
    assert.Equal(t, int32(1), atomic.LoadInt32(&dials))

    now = now.Add(redialBackoff)
    err := p.Record(context.Background(), model.Activity{ActorID: 1})
    assert.NotErrorIs(t, err, ErrBrokerUnavailable)
    assert.Equal(t, int32(2), atomic.LoadInt32(&dials))
}

func TestPublisherCloseWithoutConnection(t *testing.T) {
    p := newPublisher("amqp://broker", nil, nil)
    assert.NoError(t, p.Close())
}
