package services

import (
	"context"
	"strings"
	"time"

	"dietica/models"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

const chatHistoryLimit = 10

type ChatbotService struct {
	db   *gorm.DB
	todo *TodoService
	gen  TextGenerator
	log  *log.Logger
	now  func() time.Time
}

func NewChatbotService(db *gorm.DB, todo *TodoService, gen TextGenerator, logger *log.Logger) *ChatbotService {
	return &ChatbotService{db: db, todo: todo, gen: gen, log: logger, now: time.Now}
}

// History returns up to the last 10 exchanges of the past week, oldest first.
func (s *ChatbotService) History(ctx context.Context, userID uint) ([]models.ChatLog, error) {
	var logs []models.ChatLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND replied_at > ?", userID, s.now().AddDate(0, 0, -WindowDays).UTC()).
		Order("replied_at DESC, id DESC").
		Limit(chatHistoryLimit).
		Find(&logs).Error
	if err != nil {
		return nil, dbErr("chat history", err)
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// Send replays recent history to the model with the user's facts as system
// instruction and stores the exchange.
func (s *ChatbotService) Send(ctx context.Context, userID uint, message string) (*models.ChatLog, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidf("message must not be empty")
	}

	facts, err := s.todo.BuildFacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	instruction, err := CompileChatInstruction(facts)
	if err != nil {
		return nil, err
	}
	history, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	turns := make([]ChatTurn, 0, 2*len(history))
	for _, h := range history {
		turns = append(turns, ChatTurn{Role: "user", Text: h.Message}, ChatTurn{Role: "model", Text: h.Reply})
	}

	reply, err := s.gen.Generate(ctx, GenerateRequest{
		SystemInstruction: instruction,
		History:           turns,
		Prompt:            message,
	})
	if err != nil {
		return nil, err
	}

	entry := &models.ChatLog{UserID: userID, Message: message, Reply: reply, RepliedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, dbErr("store chat", err)
	}
	s.log.Debug("chat reply", "user", userID, "turns", len(turns))
	return entry, nil
}
