package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation is the persistent 1:1 thread between two users. Its
// primary key is derived from the pair of participant IDs, so the same
// two users always land in the same thread no matter who writes first.
// LastMessage and LastTimestamp are a denormalized summary of the most
// recent message, refreshed on every send.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	ParticipantA  uint      `gorm:"not null;index" json:"participant_a"`
	ParticipantB  uint      `gorm:"not null;index" json:"participant_b"`
	LastMessage   string    `gorm:"size:2000" json:"last_message"`
	LastTimestamp time.Time `gorm:"index" json:"last_timestamp"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// Message is one append-only entry in a conversation. Never mutated or
// deleted once written.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID string    `gorm:"size:64;not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "messages"
}

// DeriveConversationID maps an unordered pair of user IDs to the
// canonical conversation key: the smaller ID first, joined with an
// underscore. Commutative by construction, so no lookup table is needed
// to find the thread between two known users.
func DeriveConversationID(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// ConversationParticipants reverses DeriveConversationID. ok is false
// when id is not a well-formed conversation key. The parse must
// round-trip back to id exactly, so reversed pairs, leading zeros and
// trailing junk are all rejected rather than aliasing a real thread.
func ConversationParticipants(id string) (a, b uint, ok bool) {
	var lo, hi uint
	n, err := fmt.Sscanf(id, "%d_%d", &lo, &hi)
	if err != nil || n != 2 || DeriveConversationID(lo, hi) != id {
		return 0, 0, false
	}
	return lo, hi, true
}

// SendMessageRequest is the payload for posting a message to a peer.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ConversationSummary is one inbox row: the conversation plus the other
// participant's profile, fetched at read time (so a renamed peer shows
// the new name on the next load, not retroactively in old snapshots).
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Peer         *Profile     `json:"peer,omitempty"`
}
