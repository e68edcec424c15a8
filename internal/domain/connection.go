package domain

import (
	"context"
	"sort"
	"time"
)

// RequestStatus is the stored state of a connection request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsActive reports whether a request with this status blocks a new one for the pair.
func (s RequestStatus) IsActive() bool {
	return s == RequestStatusPending || s == RequestStatusAccepted
}

// ConnectionStatus is the derived per-pair view from one user's side.
type ConnectionStatus string

const (
	ConnectionNone            ConnectionStatus = "none"
	ConnectionPendingSent     ConnectionStatus = "pending_sent"
	ConnectionPendingReceived ConnectionStatus = "pending_received"
	ConnectionConnected       ConnectionStatus = "connected"
)

// ConnectionRequest is a friend request between two users. Names are first names only.
type ConnectionRequest struct {
	ID           string        `json:"id"`
	SenderID     string        `json:"sender_id"`
	SenderName   string        `json:"sender_name"`
	ReceiverID   string        `json:"receiver_id"`
	ReceiverName string        `json:"receiver_name"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PairKey returns the canonical key of the unordered pair {a, b}.
func (r *ConnectionRequest) PairKey() string {
	return PairKey(r.SenderID, r.ReceiverID)
}

// ConnectionView is the answer to a status query.
type ConnectionView struct {
	Status    ConnectionStatus `json:"status"`
	RequestID string           `json:"request_id,omitempty"`
	ChatID    string           `json:"chat_id,omitempty"`
}

// RequestDirection selects which side of a request a listing filters on.
type RequestDirection string

const (
	DirectionSent     RequestDirection = "sent"
	DirectionReceived RequestDirection = "received"
)

// PairKey sorts the two identifiers and joins them, so either party derives
// the same key without a lookup.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + pairSeparator + ids[1]
}

const pairSeparator = "_"

type ConnectionRepository interface {
	// CreateConnectionRequest stores a pending request. It returns
	// ErrDuplicateRequest when an active request already exists for the pair,
	// checked atomically with the insert.
	CreateConnectionRequest(ctx context.Context, req *ConnectionRequest) error
	GetConnectionRequest(ctx context.Context, requestID string) (*ConnectionRequest, error)
	// FindActiveRequest returns the pending or accepted request between a and b
	// in either direction, or ErrNotFound.
	FindActiveRequest(ctx context.Context, userA, userB string) (*ConnectionRequest, error)
	UpdateConnectionRequestStatus(ctx context.Context, requestID string, status RequestStatus, at time.Time) (*ConnectionRequest, error)
	DeleteConnectionRequest(ctx context.Context, requestID string) error
	ListConnectionRequests(ctx context.Context, userID string, direction RequestDirection, status RequestStatus) ([]*ConnectionRequest, error)
}
