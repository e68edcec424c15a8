package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionService tracks the request lifecycle between user pairs.
type ConnectionService struct {
	repo   ConnectionRepository
	chats  *ChatService
	logger *zap.Logger
	now    func() time.Time
}

func NewConnectionService(repo ConnectionRepository, chats *ChatService, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{
		repo:   repo,
		chats:  chats,
		logger: logger,
		now:    time.Now,
	}
}

// SendRequest creates a pending request from sender to receiver and returns its ID.
// It fails with ErrDuplicateRequest when a pending or accepted request exists
// for the pair in either direction.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, senderName, receiverID, receiverName string) (string, error) {
	senderID, receiverID = strings.TrimSpace(senderID), strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return "", ErrInvalidInput
	}
	if senderID == receiverID {
		return "", ErrSelfRequest
	}

	existing, err := s.repo.FindActiveRequest(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if existing != nil {
		return "", ErrDuplicateRequest
	}

	now := s.now().UTC()
	req := &ConnectionRequest{
		ID:           uuid.New().String(),
		SenderID:     senderID,
		SenderName:   senderName,
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
		Status:       RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store enforces the one-active-request rule on the pair key, so a
	// concurrent send that passed the check above still fails here.
	if err := s.repo.CreateConnectionRequest(ctx, req); err != nil {
		return "", err
	}

	s.logger.Info("connection request sent",
		zap.String("request_id", req.ID),
		zap.String("sender_id", senderID),
		zap.String("receiver_id", receiverID),
	)
	return req.ID, nil
}

// GetStatus derives the connection status of the pair as seen by userA.
func (s *ConnectionService) GetStatus(ctx context.Context, userA, userB string) (*ConnectionView, error) {
	req, err := s.repo.FindActiveRequest(ctx, userA, userB)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if req != nil {
		switch req.Status {
		case RequestStatusAccepted:
			chatID, err := s.chats.FindExisting(ctx, userA, userB)
			if err != nil {
				return nil, err
			}
			return &ConnectionView{Status: ConnectionConnected, RequestID: req.ID, ChatID: chatID}, nil
		case RequestStatusPending:
			if req.SenderID == userA {
				return &ConnectionView{Status: ConnectionPendingSent, RequestID: req.ID}, nil
			}
			return &ConnectionView{Status: ConnectionPendingReceived, RequestID: req.ID}, nil
		}
	}

	// Connections made before the request flow existed only have a chat.
	chatID, err := s.chats.FindExisting(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if chatID != "" {
		return &ConnectionView{Status: ConnectionConnected, ChatID: chatID}, nil
	}

	return &ConnectionView{Status: ConnectionNone}, nil
}

// Accept marks the request accepted and provisions the pair's chat.
// Accepting an already accepted request only resolves the chat again.
func (s *ConnectionService) Accept(ctx context.Context, requestID string) (string, error) {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return "", err
	}

	switch req.Status {
	case RequestStatusPending:
		req, err = s.repo.UpdateConnectionRequestStatus(ctx, requestID, RequestStatusAccepted, s.now().UTC())
		if err != nil {
			return "", err
		}
	case RequestStatusAccepted:
	default:
		return "", ErrNotPending
	}

	chatID, err := s.chats.CreateOrGetChat(ctx, req.SenderID, req.ReceiverID, req.SenderName, req.ReceiverName)
	if err != nil {
		return "", err
	}

	s.logger.Info("connection request accepted",
		zap.String("request_id", requestID),
		zap.String("chat_id", chatID),
	)
	return chatID, nil
}

// Reject marks a pending request rejected. The record is kept; it no longer
// counts as active, so either side may send a new request.
func (s *ConnectionService) Reject(ctx context.Context, requestID string) error {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != RequestStatusPending {
		return ErrNotPending
	}

	if _, err := s.repo.UpdateConnectionRequestStatus(ctx, requestID, RequestStatusRejected, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("connection request rejected", zap.String("request_id", requestID))
	return nil
}

// Cancel deletes a pending request, returning the pair to "none".
func (s *ConnectionService) Cancel(ctx context.Context, requestID string) error {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != RequestStatusPending {
		return ErrNotPending
	}

	if err := s.repo.DeleteConnectionRequest(ctx, requestID); err != nil {
		return err
	}

	s.logger.Info("connection request cancelled", zap.String("request_id", requestID))
	return nil
}

// RespondToRequest lets the receiver accept or reject. The chat ID is empty on reject.
func (s *ConnectionService) RespondToRequest(ctx context.Context, userID, requestID string, accept bool) (*ConnectionRequest, string, error) {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	if req.ReceiverID != userID {
		return nil, "", ErrForbidden
	}

	if !accept {
		return req, "", s.Reject(ctx, requestID)
	}

	chatID, err := s.Accept(ctx, requestID)
	return req, chatID, err
}

// CancelRequest lets the sender withdraw a pending request.
func (s *ConnectionService) CancelRequest(ctx context.Context, userID, requestID string) (*ConnectionRequest, error) {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SenderID != userID {
		return nil, ErrForbidden
	}
	return req, s.Cancel(ctx, requestID)
}

func (s *ConnectionService) GetPendingReceived(ctx context.Context, userID string) ([]*ConnectionRequest, error) {
	return s.repo.ListConnectionRequests(ctx, userID, DirectionReceived, RequestStatusPending)
}

func (s *ConnectionService) GetPendingSent(ctx context.Context, userID string) ([]*ConnectionRequest, error) {
	return s.repo.ListConnectionRequests(ctx, userID, DirectionSent, RequestStatusPending)
}
