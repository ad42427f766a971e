package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
)

type fakeInbox struct {
	byUser map[int][]model.Notification
}

func (f *fakeInbox) ListByUser(_ context.Context, userID int, unreadOnly bool) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.byUser[userID] {
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, userID, id int) error {
	for i, n := range f.byUser[userID] {
		if n.ID == id {
			f.byUser[userID][i].IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification", id)
}

func (f *fakeInbox) MarkAllRead(_ context.Context, userID int) (int64, error) {
	var count int64
	for i := range f.byUser[userID] {
		if !f.byUser[userID][i].IsRead {
			f.byUser[userID][i].IsRead = true
			count++
		}
	}
	return count, nil
}

func (f *fakeInbox) SoftDelete(_ context.Context, userID, id int) error {
	list := f.byUser[userID]
	for i, n := range list {
		if n.ID == id {
			f.byUser[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("notification", id)
}

func newInbox() (*Inbox, *fakeInbox) {
	store := &fakeInbox{byUser: map[int][]model.Notification{
		2: {{ID: 1, UserID: 2}, {ID: 2, UserID: 2, IsRead: true}, {ID: 3, UserID: 2}},
		3: {{ID: 4, UserID: 3}},
	}}
	return NewInbox(store, zap.NewNop()), store
}

func TestInbox_RequiresCaller(t *testing.T) {
	inbox, _ := newInbox()
	ctx := context.Background()

	_, err := inbox.List(ctx, 0, false)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(inbox.MarkRead(ctx, 0, 1), apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(inbox.Delete(ctx, 0, 1), apperr.KindUnauthenticated))
}

func TestInbox_UnreadFilterAndMarkAll(t *testing.T) {
	inbox, _ := newInbox()
	ctx := context.Background()

	unread, err := inbox.List(ctx, 2, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err := inbox.MarkAllRead(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err = inbox.List(ctx, 2, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestInbox_CannotTouchOthersNotifications(t *testing.T) {
	inbox, _ := newInbox()
	err := inbox.MarkRead(context.Background(), 2, 4)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
