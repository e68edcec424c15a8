package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/peerlink/backend/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	profilesCollection = "profiles"
	requestsCollection = "connectionRequests"
	pairsCollection    = "connectionPairs"
	chatsCollection    = "chats"
)

// FirestoreRepository stores profiles, requests and chats in Cloud Firestore.
// The connectionPairs collection holds one document per pair key pointing at
// the active request, and is read and written in the same transaction as the
// request itself.
type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

type profileDoc struct {
	FirstName         string    `firestore:"firstName"`
	Role              string    `firestore:"role"`
	PrimaryCategory   string    `firestore:"primaryCategory"`
	SecondaryCategory string    `firestore:"secondaryCategory"`
	SupportTags       []string  `firestore:"supportTags"`
	Interests         []string  `firestore:"interests"`
	AgeBracket        string    `firestore:"ageBracket"`
	StageDescriptor   string    `firestore:"stageDescriptor"`
	StageKind         string    `firestore:"stageKind"`
	StageNumber       int       `firestore:"stageNumber"`
	StageNumbered     bool      `firestore:"stageNumbered"`
	Recurrence        string    `firestore:"recurrence"`
	Available         *bool     `firestore:"availableToChat"`
	Building          string    `firestore:"building"`
	Floor             string    `firestore:"floor"`
	Bio               string    `firestore:"bio"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

type requestDoc struct {
	PairKey      string    `firestore:"pairKey"`
	SenderID     string    `firestore:"senderId"`
	SenderName   string    `firestore:"senderName"`
	ReceiverID   string    `firestore:"receiverId"`
	ReceiverName string    `firestore:"receiverName"`
	Status       string    `firestore:"status"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type pairDoc struct {
	RequestID string `firestore:"requestId"`
}

type lastMessageDoc struct {
	Text       string    `firestore:"text"`
	SenderID   string    `firestore:"senderId"`
	SenderName string    `firestore:"senderName"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

type chatDoc struct {
	Participants     []string          `firestore:"participants"`
	ParticipantNames map[string]string `firestore:"participantNames"`
	LastMessage      *lastMessageDoc   `firestore:"lastMessage"`
	LastMessageAt    time.Time         `firestore:"lastMessageTime"`
	CreatedAt        time.Time         `firestore:"createdAt"`
}

func (r *FirestoreRepository) SaveProfile(ctx context.Context, p *domain.Profile) error {
	stage := p.ParsedStage()
	doc := profileDoc{
		FirstName:         p.FirstName,
		Role:              string(p.Role),
		PrimaryCategory:   p.PrimaryCategory,
		SecondaryCategory: p.SecondaryCategory,
		SupportTags:       nonNil(p.SupportTags),
		Interests:         nonNil(p.Interests),
		AgeBracket:        p.AgeBracket,
		StageDescriptor:   p.StageDescriptor,
		StageKind:         string(stage.Kind),
		StageNumber:       stage.N,
		StageNumbered:     stage.Numbered,
		Recurrence:        p.Recurrence,
		Available:         p.Available,
		Building:          p.Building,
		Floor:             p.Floor,
		Bio:               p.Bio,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	_, err := r.client.Collection(profilesCollection).Doc(p.ID).Set(ctx, doc)
	return firestoreError("save profile", err)
}

func (r *FirestoreRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	snap, err := r.client.Collection(profilesCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, firestoreError("get profile", err)
	}
	return profileFromSnapshot(snap)
}

// ListProfilesByRole returns profiles of a role ordered by creation time
func (r *FirestoreRepository) ListProfilesByRole(ctx context.Context, role domain.Role) ([]*domain.Profile, error) {
	iter := r.client.Collection(profilesCollection).
		Where("role", "==", string(role)).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var profiles []*domain.Profile
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, firestoreError("list profiles", err)
		}
		p, err := profileFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *FirestoreRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	_, err := r.client.Collection(profilesCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "availableToChat", Value: available},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return firestoreError("set availability", err)
}

// CreateConnectionRequest writes the request and claims the pair document in
// one transaction. A live claim by another active request is a duplicate.
func (r *FirestoreRepository) CreateConnectionRequest(ctx context.Context, req *domain.ConnectionRequest) error {
	key := req.PairKey()
	pairRef := r.client.Collection(pairsCollection).Doc(key)
	reqRef := r.client.Collection(requestsCollection).Doc(req.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		active, err := r.activeClaim(tx, pairRef)
		if err != nil {
			return err
		}
		if active {
			return domain.ErrDuplicateRequest
		}

		if err := tx.Set(pairRef, pairDoc{RequestID: req.ID}); err != nil {
			return err
		}
		return tx.Create(reqRef, requestDoc{
			PairKey:      key,
			SenderID:     req.SenderID,
			SenderName:   req.SenderName,
			ReceiverID:   req.ReceiverID,
			ReceiverName: req.ReceiverName,
			Status:       string(req.Status),
			CreatedAt:    req.CreatedAt,
			UpdatedAt:    req.UpdatedAt,
		})
	})
	return firestoreError("create connection request", err)
}

// activeClaim reports whether the pair document points at a request that is still active.
func (r *FirestoreRepository) activeClaim(tx *firestore.Transaction, pairRef *firestore.DocumentRef) (bool, error) {
	snap, err := tx.Get(pairRef)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var pair pairDoc
	if err := snap.DataTo(&pair); err != nil {
		return false, err
	}

	reqSnap, err := tx.Get(r.client.Collection(requestsCollection).Doc(pair.RequestID))
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var doc requestDoc
	if err := reqSnap.DataTo(&doc); err != nil {
		return false, err
	}
	return domain.RequestStatus(doc.Status).IsActive(), nil
}

func (r *FirestoreRepository) GetConnectionRequest(ctx context.Context, requestID string) (*domain.ConnectionRequest, error) {
	snap, err := r.client.Collection(requestsCollection).Doc(requestID).Get(ctx)
	if err != nil {
		return nil, firestoreError("get connection request", err)
	}
	return requestFromSnapshot(snap)
}

// FindActiveRequest resolves the pair document, which covers both directions
func (r *FirestoreRepository) FindActiveRequest(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	snap, err := r.client.Collection(pairsCollection).Doc(domain.PairKey(userA, userB)).Get(ctx)
	if err != nil {
		return nil, firestoreError("find active request", err)
	}
	var pair pairDoc
	if err := snap.DataTo(&pair); err != nil {
		return nil, err
	}

	req, err := r.GetConnectionRequest(ctx, pair.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.IsActive() {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (r *FirestoreRepository) UpdateConnectionRequestStatus(ctx context.Context, requestID string, st domain.RequestStatus, at time.Time) (*domain.ConnectionRequest, error) {
	reqRef := r.client.Collection(requestsCollection).Doc(requestID)
	var updated *domain.ConnectionRequest

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(reqRef)
		if err != nil {
			return err
		}
		req, err := requestFromSnapshot(snap)
		if err != nil {
			return err
		}

		pairRef := r.client.Collection(pairsCollection).Doc(req.PairKey())
		pairSnap, err := tx.Get(pairRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		var pair pairDoc
		if pairSnap != nil && pairSnap.Exists() {
			if err := pairSnap.DataTo(&pair); err != nil {
				return err
			}
		}

		if st.IsActive() {
			if pair.RequestID != "" && pair.RequestID != requestID {
				return domain.ErrDuplicateRequest
			}
			if err := tx.Set(pairRef, pairDoc{RequestID: requestID}); err != nil {
				return err
			}
		} else if pair.RequestID == requestID {
			if err := tx.Delete(pairRef); err != nil {
				return err
			}
		}

		if err := tx.Update(reqRef, []firestore.Update{
			{Path: "status", Value: string(st)},
			{Path: "updatedAt", Value: at},
		}); err != nil {
			return err
		}

		req.Status = st
		req.UpdatedAt = at
		updated = req
		return nil
	})
	if err != nil {
		return nil, firestoreError("update connection request", err)
	}
	return updated, nil
}

func (r *FirestoreRepository) DeleteConnectionRequest(ctx context.Context, requestID string) error {
	reqRef := r.client.Collection(requestsCollection).Doc(requestID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(reqRef)
		if err != nil {
			return err
		}
		var doc requestDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		pairRef := r.client.Collection(pairsCollection).Doc(doc.PairKey)
		pairSnap, err := tx.Get(pairRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if pairSnap != nil && pairSnap.Exists() {
			var pair pairDoc
			if err := pairSnap.DataTo(&pair); err != nil {
				return err
			}
			if pair.RequestID == requestID {
				if err := tx.Delete(pairRef); err != nil {
					return err
				}
			}
		}
		return tx.Delete(reqRef)
	})
	return firestoreError("delete connection request", err)
}

// ListConnectionRequests sorts newest first in memory to avoid a composite index
func (r *FirestoreRepository) ListConnectionRequests(ctx context.Context, userID string, direction domain.RequestDirection, st domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	field := "receiverId"
	if direction == domain.DirectionSent {
		field = "senderId"
	}

	iter := r.client.Collection(requestsCollection).
		Where(field, "==", userID).
		Where("status", "==", string(st)).
		Documents(ctx)
	defer iter.Stop()

	var requests []*domain.ConnectionRequest
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, firestoreError("list connection requests", err)
		}
		req, err := requestFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

// CreateChatIfNotExists relies on Create failing with AlreadyExists
func (r *FirestoreRepository) CreateChatIfNotExists(ctx context.Context, chat *domain.Chat) (bool, error) {
	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Create(ctx, chatDoc{
		Participants:     chat.Participants,
		ParticipantNames: chat.ParticipantNames,
		LastMessageAt:    chat.LastMessageAt,
		CreatedAt:        chat.CreatedAt,
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, firestoreError("create chat", err)
	}
	return true, nil
}

func (r *FirestoreRepository) ChatExists(ctx context.Context, chatID string) (bool, error) {
	_, err := r.client.Collection(chatsCollection).Doc(chatID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, firestoreError("chat exists", err)
	}
	return true, nil
}

func (r *FirestoreRepository) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	snap, err := r.client.Collection(chatsCollection).Doc(chatID).Get(ctx)
	if err != nil {
		return nil, firestoreError("get chat", err)
	}
	return chatFromSnapshot(snap)
}

func (r *FirestoreRepository) ListChatsForUser(ctx context.Context, userID string) ([]*domain.Chat, error) {
	iter := r.client.Collection(chatsCollection).
		Where("participants", "array-contains", userID).
		Documents(ctx)
	defer iter.Stop()

	var chats []*domain.Chat
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, firestoreError("list chats", err)
		}
		chat, err := chatFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *FirestoreRepository) MergeLastMessage(ctx context.Context, chatID string, msg domain.LastMessage) error {
	_, err := r.client.Collection(chatsCollection).Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: lastMessageDoc(msg)},
		{Path: "lastMessageTime", Value: msg.CreatedAt},
	})
	return firestoreError("merge last message", err)
}

func profileFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.Profile, error) {
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &domain.Profile{
		ID:                snap.Ref.ID,
		FirstName:         doc.FirstName,
		Role:              domain.Role(doc.Role),
		PrimaryCategory:   doc.PrimaryCategory,
		SecondaryCategory: doc.SecondaryCategory,
		SupportTags:       doc.SupportTags,
		Interests:         doc.Interests,
		AgeBracket:        doc.AgeBracket,
		StageDescriptor:   doc.StageDescriptor,
		Stage:             docStage(doc),
		Recurrence:        doc.Recurrence,
		Available:         doc.Available,
		Building:          doc.Building,
		Floor:             doc.Floor,
		Bio:               doc.Bio,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

func requestFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.ConnectionRequest, error) {
	var doc requestDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &domain.ConnectionRequest{
		ID:           snap.Ref.ID,
		SenderID:     doc.SenderID,
		SenderName:   doc.SenderName,
		ReceiverID:   doc.ReceiverID,
		ReceiverName: doc.ReceiverName,
		Status:       domain.RequestStatus(doc.Status),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func chatFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.Chat, error) {
	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	chat := &domain.Chat{
		ID:               snap.Ref.ID,
		Participants:     doc.Participants,
		ParticipantNames: doc.ParticipantNames,
		LastMessageAt:    doc.LastMessageAt,
		CreatedAt:        doc.CreatedAt,
	}
	if chat.ParticipantNames == nil {
		chat.ParticipantNames = map[string]string{}
	}
	if doc.LastMessage != nil {
		msg := domain.LastMessage(*doc.LastMessage)
		chat.LastMessage = &msg
	}
	return chat, nil
}

func firestoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	return domain.StoreError(op, err)
}

// docStage rebuilds the stored stage. Documents written before stageNumbered
// existed only flag it through the numbered kind.
func docStage(doc profileDoc) domain.Stage {
	kind := domain.StageKind(doc.StageKind)
	return domain.Stage{
		Kind:     kind,
		N:        doc.StageNumber,
		Numbered: doc.StageNumbered || kind == domain.StageNumbered,
	}
}
