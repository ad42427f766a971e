package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/circuitbreaker"
)

type users map[int]*model.User

func (u users) FindByID(_ context.Context, id int) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("user", id)
}

type marker struct {
	sent    []int
	deleted map[int]bool
}

func (m *marker) Get(_ context.Context, id int) (*model.Notification, error) {
	if m.deleted[id] {
		return nil, apperr.NotFound("notification", id)
	}
	n := &model.Notification{ID: id, Active: true}
	for _, sent := range m.sent {
		if sent == id {
			at := time.Now()
			n.SentOn = &at
		}
	}
	return n, nil
}

func (m *marker) MarkSent(_ context.Context, id int) error {
	m.sent = append(m.sent, id)
	return nil
}

type mailer struct {
	sent []Message
	err  error
}

func (m *mailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func payload(userID int) contractmq.NotificationCreatedPayload {
	return contractmq.NotificationCreatedPayload{
		NotificationID: 7,
		UserID:         userID,
		ActorID:        1,
		Type:           string(model.TaskUpdated),
		SubjectKind:    string(model.SubjectTask),
		SubjectID:      42,
		CreatedAt:      time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestDeliver_SendsAndMarks(t *testing.T) {
	m, mk := &mailer{}, &marker{}
	s := NewSender(users{2: {ID: 2, Email: "b@example.com", Status: model.UserActive}}, mk, m, nil, zap.NewNop())

	require.NoError(t, s.Deliver(context.Background(), payload(2)))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "b@example.com", m.sent[0].To)
	assert.Equal(t, "Task #42 updated", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Body, "by user #1")
	assert.Equal(t, []int{7}, mk.sent)
}

func TestDeliver_SkipsUnknownOrInactiveRecipients(t *testing.T) {
	m, mk := &mailer{}, &marker{}
	s := NewSender(users{3: {ID: 3, Email: "c@example.com", Status: model.UserSuspended}}, mk, m, nil, zap.NewNop())

	assert.NoError(t, s.Deliver(context.Background(), payload(2)))
	assert.NoError(t, s.Deliver(context.Background(), payload(3)))
	assert.Empty(t, m.sent)
	assert.Empty(t, mk.sent)
}

func TestDeliver_SkipsDeletedAndAlreadySent(t *testing.T) {
	m, mk := &mailer{}, &marker{deleted: map[int]bool{8: true}}
	s := NewSender(users{2: {ID: 2, Email: "b@example.com", Status: model.UserActive}}, mk, m, nil, zap.NewNop())

	deleted := payload(2)
	deleted.NotificationID = 8
	require.NoError(t, s.Deliver(context.Background(), deleted))
	assert.Empty(t, m.sent)

	require.NoError(t, s.Deliver(context.Background(), payload(2)))
	require.NoError(t, s.Deliver(context.Background(), payload(2)))
	assert.Len(t, m.sent, 1)
	assert.Equal(t, []int{7}, mk.sent)
}

func TestDeliver_BreakerOpensOnRepeatedFailures(t *testing.T) {
	m := &mailer{err: errors.New("smtp down")}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 2, Timeout: time.Hour})
	s := NewSender(users{2: {ID: 2, Email: "b@example.com", Status: model.UserActive}}, &marker{}, m, breaker, zap.NewNop())

	assert.Error(t, s.Deliver(context.Background(), payload(2)))
	assert.Error(t, s.Deliver(context.Background(), payload(2)))
	err := s.Deliver(context.Background(), payload(2))
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
}

func TestRender_UnknownType(t *testing.T) {
	p := payload(2)
	p.Type = "email_received"
	_, err := Render("x@example.com", p)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
