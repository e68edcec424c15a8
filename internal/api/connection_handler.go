package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/middleware"
	"github.com/peerlink/backend/pkg/response"
	"github.com/peerlink/backend/pkg/validator"
	"go.uber.org/zap"
)

type ConnectionHandler struct {
	connService    *domain.ConnectionService
	profileService *domain.ProfileService
	events         EventPublisher
	logger         *zap.Logger
}

func NewConnectionHandler(connService *domain.ConnectionService, profileService *domain.ProfileService, events EventPublisher, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connService:    connService,
		profileService: profileService,
		events:         events,
		logger:         logger,
	}
}

// SendRequest handles POST /connections/requests
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}
	if !validator.ValidateUserID(req.ReceiverID) {
		response.BadRequest(w, "invalid receiver id")
		return
	}

	sender, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to load sender profile", err)
		return
	}
	receiver, err := h.profileService.GetProfile(r.Context(), req.ReceiverID)
	if err != nil {
		writeError(w, h.logger, "failed to load receiver profile", err)
		return
	}

	requestID, err := h.connService.SendRequest(r.Context(), userID, sender.FirstName, receiver.ID, receiver.FirstName)
	if err != nil {
		writeError(w, h.logger, "failed to send connection request", err)
		return
	}

	h.notify(receiver.ID, userID, requestID, "received", "")
	response.Created(w, map[string]string{"request_id": requestID})
}

// GetStatus handles GET /connections/{userId}/status
func (h *ConnectionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	otherID := chi.URLParam(r, "userId")
	if !validator.ValidateUserID(otherID) {
		response.BadRequest(w, "invalid user id")
		return
	}

	view, err := h.connService.GetStatus(r.Context(), userID, otherID)
	if err != nil {
		writeError(w, h.logger, "failed to get connection status", err)
		return
	}
	response.OK(w, view)
}

// Accept handles POST /connections/requests/{id}/accept
func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// Reject handles POST /connections/requests/{id}/reject
func (h *ConnectionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *ConnectionHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	requestID := chi.URLParam(r, "id")
	req, chatID, err := h.connService.RespondToRequest(r.Context(), userID, requestID, accept)
	if err != nil {
		writeError(w, h.logger, "failed to respond to connection request", err)
		return
	}

	if !accept {
		h.notify(req.SenderID, userID, requestID, "rejected", "")
		response.NoContent(w)
		return
	}

	h.notify(req.SenderID, userID, requestID, "accepted", chatID)
	response.OK(w, map[string]string{"chat_id": chatID})
}

// Cancel handles DELETE /connections/requests/{id}
func (h *ConnectionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	requestID := chi.URLParam(r, "id")
	req, err := h.connService.CancelRequest(r.Context(), userID, requestID)
	if err != nil {
		writeError(w, h.logger, "failed to cancel connection request", err)
		return
	}

	h.notify(req.ReceiverID, userID, requestID, "cancelled", "")
	response.NoContent(w)
}

// ListReceived handles GET /connections/requests/received
func (h *ConnectionHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	requests, err := h.connService.GetPendingReceived(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to list received requests", err)
		return
	}
	response.OK(w, nonNilRequests(requests))
}

// ListSent handles GET /connections/requests/sent
func (h *ConnectionHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	requests, err := h.connService.GetPendingSent(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to list sent requests", err)
		return
	}
	response.OK(w, nonNilRequests(requests))
}

func (h *ConnectionHandler) notify(recipientID, peerID, requestID, action, chatID string) {
	if h.events == nil {
		return
	}
	h.events.SendToUser(recipientID, WSEvent{
		Type: EventConnectionStatusChanged,
		Payload: ConnectionEvent{
			PeerID:    peerID,
			RequestID: requestID,
			Action:    action,
			ChatID:    chatID,
		},
	})
}

func nonNilRequests(requests []*domain.ConnectionRequest) []*domain.ConnectionRequest {
	if requests == nil {
		return []*domain.ConnectionRequest{}
	}
	return requests
}
