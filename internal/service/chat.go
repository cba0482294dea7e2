package service

import (
	"context"

	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// ChatService handles direct conversations between marketplace users.
type ChatService struct {
	store  store.Store
	logger *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(st store.Store) *ChatService {
	return &ChatService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// StartChatRequest opens a conversation with another user
type StartChatRequest struct {
	RecipientID string  `json:"recipient_id" binding:"required"`
	OrderID     *string `json:"order_id"`
	GigID       *string `json:"gig_id"`
	ServiceID   *string `json:"service_id"`
}

// SendMessageRequest represents one message
type SendMessageRequest struct {
	Content       string `json:"content" binding:"required"`
	AttachmentURL string `json:"attachment_url"`
}

// StartChat opens a conversation between the actor and the recipient,
// reusing an existing one with the same pair if present.
func (s *ChatService) StartChat(ctx context.Context, actorID string, req *StartChatRequest) (*models.Chat, error) {
	ctx, span := util.StartSpan(ctx, "ChatService.StartChat")
	defer span.End()

	if _, err := s.store.GetUser(ctx, req.RecipientID); err != nil {
		return nil, err
	}

	existing, err := s.store.ListChatsByUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].HasParticipant(req.RecipientID) && sameContext(&existing[i], req) {
			return &existing[i], nil
		}
	}

	chat := &models.Chat{
		OrderID:      req.OrderID,
		GigID:        req.GigID,
		ServiceID:    req.ServiceID,
		Participants: []string{actorID, req.RecipientID},
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.Info("Chat started",
		zap.String("chat_id", chat.ID),
		zap.String("actor_id", actorID),
		zap.String("recipient_id", req.RecipientID))
	return chat, nil
}

func sameContext(c *models.Chat, req *StartChatRequest) bool {
	return eqPtr(c.OrderID, req.OrderID) && eqPtr(c.GigID, req.GigID) && eqPtr(c.ServiceID, req.ServiceID)
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ListChats returns the actor's conversations, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, actorID string) ([]models.Chat, error) {
	return s.store.ListChatsByUser(ctx, actorID)
}

// ListMessages returns a conversation's messages in order. Participants only.
func (s *ChatService) ListMessages(ctx context.Context, actorID, chatID string) ([]models.Message, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actorID) {
		return nil, models.ErrUnauthorized
	}
	return s.store.ListMessagesByChat(ctx, chatID)
}

// SendMessage appends a message to a conversation. Participants only.
func (s *ChatService) SendMessage(ctx context.Context, actorID, chatID string, req *SendMessageRequest) (*models.Message, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actorID) {
		return nil, models.ErrUnauthorized
	}

	msg := &models.Message{
		ChatID:        chatID,
		SenderID:      actorID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
