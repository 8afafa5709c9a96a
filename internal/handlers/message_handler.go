package handlers

import (
	"log"
	"net/http"
	"strconv"

	"karigar-market/internal/auth"
	"karigar-market/internal/models"
	"karigar-market/internal/services"
	"karigar-market/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messageService *services.MessageService
}

func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// peerConversationID resolves the :peer route param into the canonical
// conversation ID for (caller, peer).
func peerConversationID(c *gin.Context, callerID uint) (string, bool) {
	peerID, err := strconv.ParseUint(c.Param("peer"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return "", false
	}
	return models.DeriveConversationID(callerID, uint(peerID)), true
}

// SendMessage posts a message to the thread with a peer
// POST /api/conversations/:peer/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, ok := peerConversationID(c, senderID)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), conversationID, senderID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListMessages returns the thread history with a peer, oldest first
// GET /api/conversations/:peer/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	requesterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, ok := peerConversationID(c, requesterID)
	if !ok {
		return
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), conversationID, requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// ListConversations returns the caller's inbox
// GET /api/conversations
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversations, err := h.messageService.ListConversationsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// StreamMessages upgrades to a websocket and streams the thread with a
// peer: full history in order, then live messages until the client
// disconnects
// GET /ws/conversations/:peer
func (h *MessageHandler) StreamMessages(c *gin.Context) {
	requesterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversationID, ok := peerConversationID(c, requesterID)
	if !ok {
		return
	}

	history, sub, err := h.messageService.SubscribeToMessages(c.Request.Context(), conversationID, requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	// The subscription was opened before the history read, so a message
	// can appear in both; drop live events already replayed.
	seen := make(map[uuid.UUID]struct{}, len(history))
	items := make([]interface{}, 0, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
		items = append(items, m)
	}

	ws.ServeFeed(conn, items, sub, func(event interface{}) bool {
		msg, ok := event.(models.Message)
		if !ok {
			return false
		}
		_, dup := seen[msg.ID]
		return dup
	})
}

// StreamInbox upgrades to a websocket and streams the caller's
// conversation summaries: the current inbox, then an updated summary
// whenever a thread receives a message
// GET /ws/inbox
func (h *MessageHandler) StreamInbox(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	inbox, sub, err := h.messageService.SubscribeToConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	items := make([]interface{}, 0, len(inbox))
	for _, entry := range inbox {
		items = append(items, entry)
	}

	ws.ServeFeed(conn, items, sub, nil)
}
