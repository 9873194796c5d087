package services

import (
	"context"
	"testing"
	"time"

	"dietica/logger"
	"dietica/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatbotSendReplaysHistory(t *testing.T) {
	f := newTodoFixture(t)
	u := seedUser(t, f.db, "a@example.com")
	seedProfileAndTarget(t, f.db, u.ID)
	f.seedFood(t, u.ID, time.Hour, 400)

	gen := &fakeGenerator{reply: "Try a walk after dinner."}
	bot := NewChatbotService(f.db, f.svc, gen, logger.Discard())
	bot.now = func() time.Time { return f.clock }

	require.NoError(t, f.db.Create([]models.ChatLog{
		{UserID: u.ID, Message: "too old", Reply: "x", RepliedAt: f.clock.AddDate(0, 0, -8)},
		{UserID: u.ID, Message: "hi", Reply: "hello", RepliedAt: f.clock.Add(-2 * time.Hour)},
		{UserID: u.ID, Message: "what should I eat?", Reply: "vegetables", RepliedAt: f.clock.Add(-time.Hour)},
	}).Error)

	entry, err := bot.Send(context.Background(), u.ID, "  and exercise?  ")
	require.NoError(t, err)
	assert.Equal(t, "and exercise?", entry.Message)
	assert.Equal(t, "Try a walk after dinner.", entry.Reply)

	require.Equal(t, 1, gen.calls())
	req := gen.reqs[0]
	assert.Equal(t, "and exercise?", req.Prompt)
	assert.Contains(t, req.SystemInstruction, "Name: Ayu Lestari")
	assert.Equal(t, []ChatTurn{
		{Role: "user", Text: "hi"},
		{Role: "model", Text: "hello"},
		{Role: "user", Text: "what should I eat?"},
		{Role: "model", Text: "vegetables"},
	}, req.History)

	history, err := bot.History(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "and exercise?", history[2].Message)
}

func TestChatbotRejectsEmptyMessage(t *testing.T) {
	f := newTodoFixture(t)
	bot := NewChatbotService(f.db, f.svc, &fakeGenerator{}, logger.Discard())

	_, err := bot.Send(context.Background(), 1, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChatbotNeedsProfile(t *testing.T) {
	f := newTodoFixture(t)
	u := seedUser(t, f.db, "a@example.com")
	gen := &fakeGenerator{reply: "x"}
	bot := NewChatbotService(f.db, f.svc, gen, logger.Discard())

	_, err := bot.Send(context.Background(), u.ID, "hello")
	assert.ErrorIs(t, err, ErrPreconditionMissing)
	assert.Zero(t, gen.calls())
}
