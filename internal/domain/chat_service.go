package domain

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChatService provisions the private chat between two connected users.
type ChatService struct {
	repo   ChatRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewChatService(repo ChatRepository, logger *zap.Logger) *ChatService {
	return &ChatService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrGetChat returns the chat ID for the pair, creating the chat record on
// first use. Calling it again, in either argument order, never creates a second record.
func (s *ChatService) CreateOrGetChat(ctx context.Context, userA, userB, nameA, nameB string) (string, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return "", ErrInvalidInput
	}
	if userA == userB {
		return "", ErrSelfRequest
	}

	chatID := ChatID(userA, userB)
	exists, err := s.repo.ChatExists(ctx, chatID)
	if err != nil {
		return "", err
	}
	if exists {
		s.logger.Debug("chat already exists", zap.String("chat_id", chatID))
		return chatID, nil
	}

	now := s.now().UTC()
	created, err := s.repo.CreateChatIfNotExists(ctx, &Chat{
		ID:           chatID,
		Participants: []string{userA, userB},
		ParticipantNames: map[string]string{
			userA: nameA,
			userB: nameB,
		},
		LastMessageAt: now,
		CreatedAt:     now,
	})
	if err != nil {
		return "", err
	}
	if created {
		s.logger.Info("created chat", zap.String("chat_id", chatID))
	}

	return chatID, nil
}

// FindExisting returns the chat ID for the pair or "" when there is none.
// Besides the canonical ID it checks the other concatenation order, which
// older records may use.
func (s *ChatService) FindExisting(ctx context.Context, userA, userB string) (string, error) {
	canonical := ChatID(userA, userB)
	exists, err := s.repo.ChatExists(ctx, canonical)
	if err != nil {
		return "", err
	}
	if exists {
		return canonical, nil
	}

	legacy := userA + pairSeparator + userB
	if legacy == canonical {
		legacy = userB + pairSeparator + userA
	}
	exists, err = s.repo.ChatExists(ctx, legacy)
	if err != nil {
		return "", err
	}
	if exists {
		return legacy, nil
	}

	return "", nil
}

// UpdateLastMessage records the chat preview. It is best effort: failures are
// logged and never returned, so message delivery is not blocked by it.
func (s *ChatService) UpdateLastMessage(ctx context.Context, chatID, text, senderID, senderName string) {
	err := s.repo.MergeLastMessage(ctx, chatID, LastMessage{
		Text:       text,
		SenderID:   senderID,
		SenderName: senderName,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to update last message",
			zap.String("chat_id", chatID),
			zap.String("sender_id", senderID),
			zap.Error(err),
		)
	}
}

// GetUserChats lists the chats userID takes part in, most recent activity first.
func (s *ChatService) GetUserChats(ctx context.Context, userID string) ([]*Chat, error) {
	chats, err := s.repo.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

// OtherParticipant returns the participant of chatID that is not userID.
// ErrForbidden is returned when userID is not in the chat.
func (s *ChatService) OtherParticipant(ctx context.Context, chatID, userID string) (*Participant, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	member := false
	var other *Participant
	for _, id := range chat.Participants {
		if id == userID {
			member = true
			continue
		}
		other = &Participant{ID: id, FirstName: chat.ParticipantNames[id]}
	}
	if !member {
		return nil, ErrForbidden
	}
	if other == nil {
		return nil, ErrNotFound
	}
	return other, nil
}

// GetChat returns the chat if userID is one of its participants.
func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return chat, nil
}
