package services

import (
	"context"
	"testing"
	"time"

	"dietica/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationEmitAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil, logger.Discard())
	clock := time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		n, err := svc.Emit(ctx, 1, NotificationTodo, title, "body")
		require.NoError(t, err)
		assert.NotZero(t, n.ID)
		assert.Equal(t, time.UTC, n.CreatedAt.Location())
	}
	_, err := svc.Emit(ctx, 2, NotificationReminder, "other user", "body")
	require.NoError(t, err)

	got, err := svc.List(ctx, 1, 0)
	require.NoError(t, err)
	var titles []string
	for _, n := range got {
		titles = append(titles, n.Title)
		assert.Equal(t, uint(1), n.UserID)
	}
	assert.Equal(t, []string{"third", "second", "first"}, titles)

	got, err = svc.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Title)

	got, err = svc.List(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotificationListDefaultLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil, logger.Discard())
	ctx := context.Background()
	for i := 0; i < 55; i++ {
		_, err := svc.Emit(ctx, 1, NotificationReminder, "drink water", "")
		require.NoError(t, err)
	}

	for _, limit := range []int{0, -1, 500} {
		got, err := svc.List(ctx, 1, limit)
		require.NoError(t, err)
		assert.Len(t, got, 50, "limit %d", limit)
	}
}

func TestNotificationEmitBroadcasts(t *testing.T) {
	hub := NewRealtimeHub()
	conn, _ := dialHub(t, hub, 4)
	svc := NewNotificationService(newTestDB(t), hub, logger.Discard())

	n, err := svc.Emit(context.Background(), 4, NotificationTodo, "New to-dos", "Your plan is ready")
	require.NoError(t, err)

	msg := readJSON(t, conn)
	assert.Equal(t, "notification.created", msg["kind"])
	require.IsType(t, map[string]any{}, msg["notification"])
	body := msg["notification"].(map[string]any)
	assert.Equal(t, "New to-dos", body["title"])
	assert.Equal(t, NotificationTodo, body["type"])
	assert.EqualValues(t, n.ID, body["id"])
}
