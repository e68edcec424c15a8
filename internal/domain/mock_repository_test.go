package domain

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) SaveProfile(ctx context.Context, profile *Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*Profile)
	return p, args.Error(1)
}

func (m *MockProfileRepository) ListProfilesByRole(ctx context.Context, role Role) ([]*Profile, error) {
	args := m.Called(ctx, role)
	profiles, _ := args.Get(0).([]*Profile)
	return profiles, args.Error(1)
}

func (m *MockProfileRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	args := m.Called(ctx, userID, available)
	return args.Error(0)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateChatIfNotExists(ctx context.Context, chat *Chat) (bool, error) {
	args := m.Called(ctx, chat)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) ChatExists(ctx context.Context, chatID string) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	args := m.Called(ctx, chatID)
	chat, _ := args.Get(0).(*Chat)
	return chat, args.Error(1)
}

func (m *MockChatRepository) ListChatsForUser(ctx context.Context, userID string) ([]*Chat, error) {
	args := m.Called(ctx, userID)
	chats, _ := args.Get(0).([]*Chat)
	return chats, args.Error(1)
}

func (m *MockChatRepository) MergeLastMessage(ctx context.Context, chatID string, msg LastMessage) error {
	args := m.Called(ctx, chatID, msg)
	return args.Error(0)
}
