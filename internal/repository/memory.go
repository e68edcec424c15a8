package repository

import (
	"context"
	"sync"
	"time"

	"github.com/peerlink/backend/internal/domain"
)

// MemoryRepository keeps all records in process memory. It backs local
// development (STORE_TYPE=memory) and tests, and applies the same pair-key
// uniqueness rule as the persistent stores.
type MemoryRepository struct {
	mu sync.RWMutex

	profiles     map[string]*domain.Profile
	profileOrder []string

	requests     map[string]*domain.ConnectionRequest
	requestOrder []string
	activePairs  map[string]string // pair key -> active request ID

	chats map[string]*domain.Chat
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:    make(map[string]*domain.Profile),
		requests:    make(map[string]*domain.ConnectionRequest),
		activePairs: make(map[string]string),
		chats:       make(map[string]*domain.Chat),
	}
}

// SaveProfile upserts a profile
func (r *MemoryRepository) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.ID]; !ok {
		r.profileOrder = append(r.profileOrder, profile.ID)
	}
	r.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (r *MemoryRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProfile(p), nil
}

// ListProfilesByRole returns profiles in insertion order
func (r *MemoryRepository) ListProfilesByRole(ctx context.Context, role domain.Role) ([]*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Profile
	for _, id := range r.profileOrder {
		if p := r.profiles[id]; p.Role == role {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Available = &available
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateConnectionRequest inserts a request unless the pair already has an active one
func (r *MemoryRepository) CreateConnectionRequest(ctx context.Context, req *domain.ConnectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := req.PairKey()
	if id, ok := r.activePairs[key]; ok {
		if existing, ok := r.requests[id]; ok && existing.Status.IsActive() {
			return domain.ErrDuplicateRequest
		}
	}

	stored := *req
	r.requests[req.ID] = &stored
	r.requestOrder = append(r.requestOrder, req.ID)
	r.activePairs[key] = req.ID
	return nil
}

func (r *MemoryRepository) GetConnectionRequest(ctx context.Context, requestID string) (*domain.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *req
	return &out, nil
}

// FindActiveRequest checks both directions of the pair
func (r *MemoryRepository) FindActiveRequest(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.requestOrder {
		req, ok := r.requests[id]
		if !ok || !req.Status.IsActive() {
			continue
		}
		if (req.SenderID == userA && req.ReceiverID == userB) ||
			(req.SenderID == userB && req.ReceiverID == userA) {
			out := *req
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryRepository) UpdateConnectionRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus, at time.Time) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	key := req.PairKey()
	if status.IsActive() {
		if id, ok := r.activePairs[key]; ok && id != requestID {
			if other, ok := r.requests[id]; ok && other.Status.IsActive() {
				return nil, domain.ErrDuplicateRequest
			}
		}
		r.activePairs[key] = requestID
	} else if r.activePairs[key] == requestID {
		delete(r.activePairs, key)
	}

	req.Status = status
	req.UpdatedAt = at
	out := *req
	return &out, nil
}

func (r *MemoryRepository) DeleteConnectionRequest(ctx context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if key := req.PairKey(); r.activePairs[key] == requestID {
		delete(r.activePairs, key)
	}
	delete(r.requests, requestID)
	for i, id := range r.requestOrder {
		if id == requestID {
			r.requestOrder = append(r.requestOrder[:i], r.requestOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) ListConnectionRequests(ctx context.Context, userID string, direction domain.RequestDirection, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.ConnectionRequest
	for _, id := range r.requestOrder {
		req := r.requests[id]
		if req.Status != status {
			continue
		}
		if (direction == domain.DirectionSent && req.SenderID == userID) ||
			(direction == domain.DirectionReceived && req.ReceiverID == userID) {
			c := *req
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateChatIfNotExists(ctx context.Context, chat *domain.Chat) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chat.ID]; ok {
		return false, nil
	}
	r.chats[chat.ID] = cloneChat(chat)
	return true, nil
}

func (r *MemoryRepository) ChatExists(ctx context.Context, chatID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.chats[chatID]
	return ok, nil
}

func (r *MemoryRepository) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneChat(chat), nil
}

func (r *MemoryRepository) ListChatsForUser(ctx context.Context, userID string) ([]*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Chat
	for _, chat := range r.chats {
		for _, p := range chat.Participants {
			if p == userID {
				out = append(out, cloneChat(chat))
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryRepository) MergeLastMessage(ctx context.Context, chatID string, msg domain.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return domain.ErrNotFound
	}
	chat.LastMessage = &msg
	chat.LastMessageAt = msg.CreatedAt
	return nil
}

// ChatCount returns the number of stored chats.
func (r *MemoryRepository) ChatCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

func cloneProfile(p *domain.Profile) *domain.Profile {
	c := *p
	c.SupportTags = append([]string(nil), p.SupportTags...)
	c.Interests = append([]string(nil), p.Interests...)
	if p.Available != nil {
		v := *p.Available
		c.Available = &v
	}
	return &c
}

func cloneChat(chat *domain.Chat) *domain.Chat {
	c := *chat
	c.Participants = append([]string(nil), chat.Participants...)
	c.ParticipantNames = make(map[string]string, len(chat.ParticipantNames))
	for k, v := range chat.ParticipantNames {
		c.ParticipantNames[k] = v
	}
	if chat.LastMessage != nil {
		m := *chat.LastMessage
		c.LastMessage = &m
	}
	return &c
}
