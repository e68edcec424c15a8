package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/middleware"
	"github.com/peerlink/backend/pkg/response"
	"github.com/peerlink/backend/pkg/validator"
	"go.uber.org/zap"
)

const maxPreviewLength = 200

type ChatHandler struct {
	chatService    *domain.ChatService
	connService    *domain.ConnectionService
	profileService *domain.ProfileService
	wsManager      *WebSocketManager
	logger         *zap.Logger
}

func NewChatHandler(
	chatService *domain.ChatService,
	connService *domain.ConnectionService,
	profileService *domain.ProfileService,
	wsManager *WebSocketManager,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		connService:    connService,
		profileService: profileService,
		wsManager:      wsManager,
		logger:         logger,
	}
}

// HandleWebSocket upgrades HTTP connection to WebSocket
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.wsManager.Serve(w, r, userID); err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// CreateChat handles POST /chats. Only connected pairs get a chat.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}
	if !validator.ValidateUserID(req.UserID) {
		response.BadRequest(w, "invalid user id")
		return
	}
	if req.UserID == userID {
		writeError(w, h.logger, "failed to create chat", domain.ErrSelfRequest)
		return
	}

	view, err := h.connService.GetStatus(r.Context(), userID, req.UserID)
	if err != nil {
		writeError(w, h.logger, "failed to check connection", err)
		return
	}
	if view.Status != domain.ConnectionConnected {
		response.Forbidden(w, "users are not connected")
		return
	}
	if view.ChatID != "" {
		response.OK(w, map[string]string{"chat_id": view.ChatID})
		return
	}

	me, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to load profile", err)
		return
	}
	other, err := h.profileService.GetProfile(r.Context(), req.UserID)
	if err != nil {
		writeError(w, h.logger, "failed to load profile", err)
		return
	}

	chatID, err := h.chatService.CreateOrGetChat(r.Context(), userID, other.ID, me.FirstName, other.FirstName)
	if err != nil {
		writeError(w, h.logger, "failed to create chat", err)
		return
	}
	response.OK(w, map[string]string{"chat_id": chatID})
}

// GetChats handles GET /chats
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	chats, err := h.chatService.GetUserChats(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to get chats", err)
		return
	}
	if chats == nil {
		chats = []*domain.Chat{}
	}
	response.OK(w, chats)
}

// GetParticipant handles GET /chats/{chatId}/participant
func (h *ChatHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	participant, err := h.chatService.OtherParticipant(r.Context(), chi.URLParam(r, "chatId"), userID)
	if err != nil {
		writeError(w, h.logger, "failed to get participant", err)
		return
	}
	response.OK(w, participant)
}

// UpdateLastMessage handles POST /chats/{chatId}/last-message. The preview
// write itself is best effort, so a valid call always gets 204.
func (h *ChatHandler) UpdateLastMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		response.BadRequest(w, "text is required")
		return
	}

	chatID := chi.URLParam(r, "chatId")
	chat, err := h.chatService.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeError(w, h.logger, "failed to load chat", err)
		return
	}

	text := validator.SanitizeString(req.Text, maxPreviewLength)
	h.chatService.UpdateLastMessage(r.Context(), chat.ID, text, userID, chat.ParticipantNames[userID])
	response.NoContent(w)
}
