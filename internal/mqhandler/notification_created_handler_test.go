package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/pkg/apperr"
)

type deliverer struct {
	calls int
	err   error
}

func (d *deliverer) Deliver(context.Context, contractmq.NotificationCreatedPayload) error {
	d.calls++
	return d.err
}

type guard struct {
	held     map[int64]bool
	released int
}

func (g *guard) AcquireOnce(_ context.Context, _ string, id int64) bool {
	if g.held[id] {
		return false
	}
	g.held[id] = true
	return true
}

func (g *guard) Release(_ context.Context, _ string, id int64) {
	g.released++
	delete(g.held, id)
}

type counter struct{ n map[string]int64 }

func (c *counter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	c.n[key]++
	return c.n[key], nil
}

func (c *counter) Reset(_ context.Context, key string) error {
	delete(c.n, key)
	return nil
}

type dlq struct{ reasons []string }

func (d *dlq) PublishToDLQ(_ context.Context, _ string, _ []byte, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type harness struct {
	h       *NotificationCreatedHandler
	sender  *deliverer
	guard   *guard
	counter *counter
	dlq     *dlq
}

func newHarness(sendErr error) *harness {
	hs := &harness{
		sender:  &deliverer{err: sendErr},
		guard:   &guard{held: map[int64]bool{}},
		counter: &counter{n: map[string]int64{}},
		dlq:     &dlq{},
	}
	hs.h = NewNotificationCreatedHandler(hs.sender, hs.guard, hs.counter, hs.dlq, 2, zap.NewNop())
	return hs
}

func message(t *testing.T, id int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(contractmq.NotificationCreatedPayload{NotificationID: id, UserID: 2, Type: "task_updated"})
	require.NoError(t, err)
	return raw
}

func TestHandle_DeliversOnce(t *testing.T) {
	hs := newHarness(nil)

	require.NoError(t, hs.h.Handle(context.Background(), message(t, 1)))
	require.NoError(t, hs.h.Handle(context.Background(), message(t, 1)))

	assert.Equal(t, 1, hs.sender.calls)
	assert.Empty(t, hs.dlq.reasons)
}

func TestHandle_BadPayloadGoesToDLQ(t *testing.T) {
	hs := newHarness(nil)

	require.NoError(t, hs.h.Handle(context.Background(), json.RawMessage(`{not json`)))

	assert.Zero(t, hs.sender.calls)
	assert.Equal(t, []string{"json_decode_error"}, hs.dlq.reasons)
}

func TestHandle_RetryableRequeuesThenDeadLetters(t *testing.T) {
	hs := newHarness(apperr.Unavailable("db down", errors.New("dial")))
	msg := message(t, 5)

	assert.Error(t, hs.h.Handle(context.Background(), msg))
	assert.Error(t, hs.h.Handle(context.Background(), msg))
	assert.NoError(t, hs.h.Handle(context.Background(), msg))

	assert.Equal(t, 3, hs.sender.calls)
	assert.Equal(t, 2, hs.guard.released)
	assert.Equal(t, []string{"max_retries_exceeded"}, hs.dlq.reasons)
	assert.Empty(t, hs.counter.n)
}

func TestHandle_NonRetryableDeadLettersImmediately(t *testing.T) {
	hs := newHarness(apperr.InvalidValue("type", "bogus"))

	require.NoError(t, hs.h.Handle(context.Background(), message(t, 9)))

	assert.Equal(t, []string{"validation_error"}, hs.dlq.reasons)
	assert.Zero(t, hs.guard.released)
}
