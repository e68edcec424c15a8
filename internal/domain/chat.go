package domain

import (
	"context"
	"time"
)

type Chat struct {
	ID               string            `json:"id"`
	Participants     []string          `json:"participants"`
	ParticipantNames map[string]string `json:"participant_names"`
	LastMessage      *LastMessage      `json:"last_message"`
	LastMessageAt    time.Time         `json:"last_message_at"`
	CreatedAt        time.Time         `json:"created_at"`
}

// LastMessage is the preview shown in chat lists. Delivery of the messages
// themselves happens elsewhere.
type LastMessage struct {
	Text       string    `json:"text"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Participant is the other side of a chat from one user's point of view.
type Participant struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
}

// ChatID is the deterministic identifier of the chat between a and b.
func ChatID(a, b string) string {
	return PairKey(a, b)
}

type ChatRepository interface {
	// CreateChatIfNotExists inserts chat unless a record with its ID exists.
	// created is false when the chat was already there.
	CreateChatIfNotExists(ctx context.Context, chat *Chat) (created bool, err error)
	ChatExists(ctx context.Context, chatID string) (bool, error)
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]*Chat, error)
	MergeLastMessage(ctx context.Context, chatID string, msg LastMessage) error
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
