package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChatID_OrderIndependent(t *testing.T) {
	assert.Equal(t, ChatID("b", "a"), ChatID("a", "b"))
	assert.Equal(t, "a_b", ChatID("b", "a"))
}

func TestChatService_CreateOrGetChat(t *testing.T) {
	ctx := context.Background()
	repo := new(MockChatRepository)
	repo.On("ChatExists", mock.Anything, "u1_u2").Return(false, nil).Once()
	repo.On("CreateChatIfNotExists", mock.Anything, mock.MatchedBy(func(c *Chat) bool {
		return c.ID == "u1_u2" &&
			len(c.Participants) == 2 &&
			c.ParticipantNames["u1"] == "Ann" &&
			c.ParticipantNames["u2"] == "Ben"
	})).Return(true, nil).Once()
	repo.On("ChatExists", mock.Anything, "u1_u2").Return(true, nil)

	svc := NewChatService(repo, zap.NewNop())

	id, err := svc.CreateOrGetChat(ctx, "u2", "u1", "Ben", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", id)

	id, err = svc.CreateOrGetChat(ctx, "u1", "u2", "Ann", "Ben")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", id)

	repo.AssertNumberOfCalls(t, "CreateChatIfNotExists", 1)
}

func TestChatService_CreateOrGetChat_LostRace(t *testing.T) {
	repo := new(MockChatRepository)
	repo.On("ChatExists", mock.Anything, "a_b").Return(false, nil)
	repo.On("CreateChatIfNotExists", mock.Anything, mock.Anything).Return(false, nil)

	id, err := NewChatService(repo, zap.NewNop()).CreateOrGetChat(context.Background(), "a", "b", "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "a_b", id)
}

func TestChatService_CreateOrGetChat_InvalidInput(t *testing.T) {
	svc := NewChatService(new(MockChatRepository), zap.NewNop())

	_, err := svc.CreateOrGetChat(context.Background(), "a", "a", "A", "A")
	assert.ErrorIs(t, err, ErrSelfRequest)

	_, err = svc.CreateOrGetChat(context.Background(), "a", " ", "A", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChatService_FindExisting(t *testing.T) {
	ctx := context.Background()

	t.Run("canonical", func(t *testing.T) {
		repo := new(MockChatRepository)
		repo.On("ChatExists", mock.Anything, "a_b").Return(true, nil)
		id, err := NewChatService(repo, zap.NewNop()).FindExisting(ctx, "b", "a")
		require.NoError(t, err)
		assert.Equal(t, "a_b", id)
	})

	t.Run("reverse order record", func(t *testing.T) {
		repo := new(MockChatRepository)
		repo.On("ChatExists", mock.Anything, "a_b").Return(false, nil)
		repo.On("ChatExists", mock.Anything, "b_a").Return(true, nil)
		id, err := NewChatService(repo, zap.NewNop()).FindExisting(ctx, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, "b_a", id)
	})

	t.Run("none", func(t *testing.T) {
		repo := new(MockChatRepository)
		repo.On("ChatExists", mock.Anything, mock.Anything).Return(false, nil)
		id, err := NewChatService(repo, zap.NewNop()).FindExisting(ctx, "a", "b")
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}

func TestChatService_UpdateLastMessageSwallowsErrors(t *testing.T) {
	repo := new(MockChatRepository)
	repo.On("MergeLastMessage", mock.Anything, "a_b", mock.MatchedBy(func(m LastMessage) bool {
		return m.Text == "hi" && m.SenderID == "a" && m.SenderName == "Ann"
	})).Return(StoreError("merge last message", errors.New("deadline exceeded")))

	svc := NewChatService(repo, zap.NewNop())
	assert.NotPanics(t, func() {
		svc.UpdateLastMessage(context.Background(), "a_b", "hi", "a", "Ann")
	})
	repo.AssertExpectations(t)
}

func TestChatService_GetUserChatsSortedByActivity(t *testing.T) {
	now := time.Now()
	repo := new(MockChatRepository)
	repo.On("ListChatsForUser", mock.Anything, "a").Return([]*Chat{
		{ID: "a_b", LastMessageAt: now.Add(-time.Hour)},
		{ID: "a_c", LastMessageAt: now},
	}, nil)

	chats, err := NewChatService(repo, zap.NewNop()).GetUserChats(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "a_c", chats[0].ID)
}

func TestChatService_OtherParticipant(t *testing.T) {
	repo := new(MockChatRepository)
	repo.On("GetChat", mock.Anything, "a_b").Return(&Chat{
		ID:               "a_b",
		Participants:     []string{"a", "b"},
		ParticipantNames: map[string]string{"a": "Ann", "b": "Ben"},
	}, nil)
	svc := NewChatService(repo, zap.NewNop())

	p, err := svc.OtherParticipant(context.Background(), "a_b", "a")
	require.NoError(t, err)
	assert.Equal(t, &Participant{ID: "b", FirstName: "Ben"}, p)

	_, err = svc.OtherParticipant(context.Background(), "a_b", "z")
	assert.ErrorIs(t, err, ErrForbidden)
}
