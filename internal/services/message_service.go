package services

import (
	"context"
	"errors"
	"time"

	"karigar-market/internal/models"
	"karigar-market/internal/repository"
	"karigar-market/internal/ws"

	"github.com/google/uuid"
)

// MessageService owns the 1:1 messaging between matched parties:
// append-only message history, the denormalized conversation summary,
// and the live feeds carried by the hub.
type MessageService struct {
	repo *repository.Repository
	hub  *ws.Hub
}

func NewMessageService(repo *repository.Repository, hub *ws.Hub) *MessageService {
	return &MessageService{repo: repo, hub: hub}
}

// SendMessage appends a message to the conversation and refreshes the
// conversation summary in the same transaction, then publishes to the
// live feeds of the thread and both participants' inboxes.
//
// The sender must be one of the two participants encoded in the
// conversation ID, and the two participants must be distinct; a user
// cannot open a thread with themselves.
func (s *MessageService) SendMessage(ctx context.Context, conversationID string, senderID uint, text string) (*models.Message, error) {
	if text == "" {
		return nil, invalidField("text", "must not be empty")
	}

	a, b, ok := models.ConversationParticipants(conversationID)
	if !ok {
		return nil, invalidField("conversation_id", "malformed")
	}
	if a == b {
		return nil, invalidField("conversation_id", "participants must be distinct")
	}
	if senderID != a && senderID != b {
		return nil, ErrPermissionDenied
	}

	now := time.Now()
	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      now,
	}
	conversation := &models.Conversation{
		ID:            conversationID,
		ParticipantA:  a,
		ParticipantB:  b,
		LastMessage:   text,
		LastTimestamp: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateMessage(ctx, message); err != nil {
			return unavailable(err)
		}
		if err := tx.UpsertConversation(ctx, conversation); err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(conversationID, *message)
	s.hub.Publish(ws.InboxTopic(a), *conversation)
	s.hub.Publish(ws.InboxTopic(b), *conversation)

	return message, nil
}

// ListMessages returns the conversation history oldest first.
// Participant-only.
func (s *MessageService) ListMessages(ctx context.Context, conversationID string, requesterID uint) ([]models.Message, error) {
	a, b, ok := models.ConversationParticipants(conversationID)
	if !ok {
		return nil, invalidField("conversation_id", "malformed")
	}
	if requesterID != a && requesterID != b {
		return nil, ErrPermissionDenied
	}

	messages, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, unavailable(err)
	}
	return messages, nil
}

// ListConversationsForUser returns the user's inbox, most recently
// active first, each row annotated with the peer's current profile. A
// peer whose account is gone leaves the profile nil rather than
// dropping the row.
func (s *MessageService) ListConversationsForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	conversations, err := s.repo.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}

	result := make([]models.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		peerID := conv.ParticipantA
		if peerID == userID {
			peerID = conv.ParticipantB
		}

		entry := models.ConversationSummary{Conversation: conv}
		if peer, err := s.repo.GetUserByID(ctx, peerID); err == nil {
			profile := peer.PublicProfile()
			entry.Peer = &profile
		}
		result = append(result, entry)
	}
	return result, nil
}

// SubscribeToMessages opens a live feed for one conversation: the full
// history in createdAt order first, then new messages as they arrive.
// Participant-only. The caller must Cancel the subscription when done.
//
// The hub subscription is opened before the history read so nothing
// sent in between is lost; anything that shows up in both is deduped by
// message ID, keeping the feed in non-decreasing createdAt order.
func (s *MessageService) SubscribeToMessages(ctx context.Context, conversationID string, requesterID uint) ([]models.Message, *ws.Subscription, error) {
	a, b, ok := models.ConversationParticipants(conversationID)
	if !ok {
		return nil, nil, invalidField("conversation_id", "malformed")
	}
	if requesterID != a && requesterID != b {
		return nil, nil, ErrPermissionDenied
	}

	sub := s.hub.Subscribe(conversationID)

	history, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		sub.Cancel()
		return nil, nil, unavailable(err)
	}

	return history, sub, nil
}

// SubscribeToConversations opens the live inbox feed for a user:
// current conversations first, then updated summaries as messages
// arrive. The caller must Cancel the subscription when done.
func (s *MessageService) SubscribeToConversations(ctx context.Context, userID uint) ([]models.ConversationSummary, *ws.Subscription, error) {
	sub := s.hub.Subscribe(ws.InboxTopic(userID))

	inbox, err := s.ListConversationsForUser(ctx, userID)
	if err != nil {
		sub.Cancel()
		return nil, nil, err
	}

	return inbox, sub, nil
}

// GetConversation returns one conversation record. Participant-only.
func (s *MessageService) GetConversation(ctx context.Context, conversationID string, requesterID uint) (*models.Conversation, error) {
	a, b, ok := models.ConversationParticipants(conversationID)
	if !ok {
		return nil, invalidField("conversation_id", "malformed")
	}
	if requesterID != a && requesterID != b {
		return nil, ErrPermissionDenied
	}

	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return conversation, nil
}
