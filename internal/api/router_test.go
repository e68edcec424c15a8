package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerlink/backend/internal/auth"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]WSEvent
}

func (p *recordingPublisher) SendToUser(userID string, event WSEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]WSEvent)
	}
	p.events[userID] = append(p.events[userID], event)
}

func (p *recordingPublisher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}

type testServer struct {
	t      *testing.T
	server *httptest.Server
	jwt    *auth.JWTManager
	events *recordingPublisher
	ws     *WebSocketManager
}

func newTestServer(t *testing.T) *testServer {
	logger := zap.NewNop()
	repo := repository.NewMemoryRepository()

	profiles := domain.NewProfileService(repo)
	matches := domain.NewMatchService(repo, logger)
	chats := domain.NewChatService(repo, logger)
	conns := domain.NewConnectionService(repo, chats, logger)

	jwtManager := auth.NewJWTManager("test-secret", "peerlink", time.Hour)
	events := &recordingPublisher{}
	ws := NewWebSocketManager([]string{"*"}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Run(ctx)

	router := NewRouter(RouterDeps{
		ProfileHandler:    NewProfileHandler(profiles, logger),
		MatchHandler:      NewMatchHandler(matches, profiles, logger),
		ConnectionHandler: NewConnectionHandler(conns, profiles, events, logger),
		ChatHandler:       NewChatHandler(chats, conns, profiles, ws, logger),
		HealthHandler:     NewHealthHandler(nil),
		Verifier:          jwtManager,
		AllowedOrigins:    []string{"*"},
		Logger:            logger,
	})

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv, jwt: jwtManager, events: events, ws: ws}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) do(method, path, userID string, body interface{}) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.GenerateToken(userID, "")
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&env)
	}
	return resp.StatusCode, env
}

func (s *testServer) saveProfile(userID string, body map[string]interface{}) {
	s.t.Helper()
	code, _ := s.do(http.MethodPut, "/api/v1/me/profile", userID, body)
	require.Equal(s.t, http.StatusOK, code)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAPI_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/matches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	code, _ = s.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_Matches(t *testing.T) {
	s := newTestServer(t)

	s.saveProfile("seeker1", map[string]interface{}{
		"first_name": "Rosa Maria", "role": "seeker",
		"primary_category": "Breast Cancer", "secondary_category": "Chemotherapy",
		"support_tags": []string{"Peer Support", "Spiritual"},
	})
	s.saveProfile("mentorX", map[string]interface{}{
		"first_name": "Xena", "role": "supporter",
		"primary_category": "Breast Cancer", "secondary_category": "Chemotherapy",
		"support_tags": []string{"Peer Support"},
	})
	s.saveProfile("mentorY", map[string]interface{}{
		"first_name": "Yara", "role": "supporter", "primary_category": "Lung Cancer",
	})
	s.saveProfile("mentorZ", map[string]interface{}{
		"first_name": "Zoe", "role": "supporter", "primary_category": "Breast Cancer", "available": false,
	})

	code, env := s.do(http.MethodGet, "/api/v1/matches", "seeker1", nil)
	require.Equal(t, http.StatusOK, code)

	tiers := decode[domain.Tiers](t, env.Data)
	require.Len(t, tiers.Best, 1)
	assert.Equal(t, "mentorX", tiers.Best[0].Profile.ID)
	assert.Equal(t, 110, tiers.Best[0].Score)
	assert.Equal(t, []string{"same primary category", "same secondary category", "1 support match"}, tiers.Best[0].Reasons)
	assert.Empty(t, tiers.Good)
	require.Len(t, tiers.Other, 1)
	assert.Equal(t, "mentorY", tiers.Other[0].Profile.ID)
	assert.Equal(t, 0, tiers.Other[0].Score)

	code, env = s.do(http.MethodGet, "/api/v1/matches?view=list&limit=1", "seeker1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.RankedCandidate](t, env.Data), 1)

	code, _ = s.do(http.MethodGet, "/api/v1/matches", "noprofile", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_ConnectionFlow(t *testing.T) {
	s := newTestServer(t)
	s.saveProfile("alice", map[string]interface{}{"first_name": "Alice Smith", "role": "seeker"})
	s.saveProfile("bob", map[string]interface{}{"first_name": "Bob", "role": "supporter"})

	code, env := s.do(http.MethodPost, "/api/v1/connections/requests", "alice", map[string]string{"receiver_id": "bob"})
	require.Equal(t, http.StatusCreated, code)
	requestID := decode[map[string]string](t, env.Data)["request_id"]
	require.NotEmpty(t, requestID)
	assert.Equal(t, 1, s.events.count("bob"))

	code, env = s.do(http.MethodPost, "/api/v1/connections/requests", "bob", map[string]string{"receiver_id": "alice"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE_REQUEST", env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/connections/bob/status", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.ConnectionPendingSent, decode[domain.ConnectionView](t, env.Data).Status)

	code, env = s.do(http.MethodGet, "/api/v1/connections/requests/received", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	received := decode[[]domain.ConnectionRequest](t, env.Data)
	require.Len(t, received, 1)
	assert.Equal(t, "Alice", received[0].SenderName)

	// only the receiver may accept
	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests/"+requestID+"/accept", "alice", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, "/api/v1/connections/requests/"+requestID+"/accept", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	chatID := decode[map[string]string](t, env.Data)["chat_id"]
	assert.Equal(t, "alice_bob", chatID)
	assert.Equal(t, 1, s.events.count("alice"))

	code, env = s.do(http.MethodPost, "/api/v1/chats", "alice", map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, chatID, decode[map[string]string](t, env.Data)["chat_id"])

	code, env = s.do(http.MethodGet, "/api/v1/chats/"+chatID+"/participant", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.Participant{ID: "alice", FirstName: "Alice"}, decode[domain.Participant](t, env.Data))

	code, _ = s.do(http.MethodPost, "/api/v1/chats/"+chatID+"/last-message", "alice", map[string]string{"text": "hi Bob"})
	assert.Equal(t, http.StatusNoContent, code)

	code, env = s.do(http.MethodGet, "/api/v1/chats", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	chats := decode[[]domain.Chat](t, env.Data)
	require.Len(t, chats, 1)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "hi Bob", chats[0].LastMessage.Text)
	assert.Equal(t, "Alice", chats[0].LastMessage.SenderName)

	code, _ = s.do(http.MethodGet, "/api/v1/chats/"+chatID+"/participant", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAPI_CancelAndReject(t *testing.T) {
	s := newTestServer(t)
	s.saveProfile("a", map[string]interface{}{"first_name": "Ann", "role": "seeker"})
	s.saveProfile("b", map[string]interface{}{"first_name": "Ben", "role": "supporter"})

	_, env := s.do(http.MethodPost, "/api/v1/connections/requests", "a", map[string]string{"receiver_id": "b"})
	requestID := decode[map[string]string](t, env.Data)["request_id"]

	code, _ := s.do(http.MethodDelete, "/api/v1/connections/requests/"+requestID, "b", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/connections/requests/"+requestID, "a", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = s.do(http.MethodGet, "/api/v1/connections/a/status", "b", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.ConnectionNone, decode[domain.ConnectionView](t, env.Data).Status)

	code, env = s.do(http.MethodPost, "/api/v1/connections/requests", "b", map[string]string{"receiver_id": "a"})
	require.Equal(t, http.StatusCreated, code)
	requestID = decode[map[string]string](t, env.Data)["request_id"]

	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests/"+requestID+"/reject", "a", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests/"+requestID+"/accept", "a", nil)
	assert.Equal(t, http.StatusConflict, code)

	// not connected, so no chat
	code, _ = s.do(http.MethodPost, "/api/v1/chats", "a", map[string]string{"user_id": "b"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests", "a", map[string]string{"receiver_id": "a"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests", "a", map[string]string{"receiver_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/v1/connections/requests", "a", map[string]string{"receiver_id": " b"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/v1/chats", "a", map[string]string{"user_id": "a "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_ProfileValidationAndAvailability(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPut, "/api/v1/me/profile", "u1", map[string]interface{}{"first_name": "", "role": "doctor"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	s.saveProfile("u1", map[string]interface{}{"first_name": "Uma", "role": "supporter", "stage_descriptor": "Stage 2"})

	code, env = s.do(http.MethodGet, "/api/v1/me/profile", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	p := decode[domain.Profile](t, env.Data)
	assert.Equal(t, domain.Stage{Kind: domain.StageNumbered, N: 2, Numbered: true}, p.Stage)

	code, _ = s.do(http.MethodPatch, "/api/v1/me/availability", "u1", map[string]bool{"available": false})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/profiles/u1", "u2", nil)
	require.Equal(t, http.StatusOK, code)
	other := decode[domain.Profile](t, env.Data)
	assert.False(t, other.IsAvailable())

	code, _ = s.do(http.MethodPatch, "/api/v1/me/availability", "u1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_WebSocketThroughRouter(t *testing.T) {
	s := newTestServer(t)

	token, err := s.jwt.GenerateToken("carol", "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/v1/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return s.ws.ConnectedUsers() == 1 }, time.Second, 10*time.Millisecond)

	s.ws.SendToUser("carol", WSEvent{Type: EventConnectionStatusChanged, Payload: ConnectionEvent{PeerID: "dave", Action: "accepted"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type    string          `json:"type"`
		Payload ConnectionEvent `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventConnectionStatusChanged, got.Type)
	assert.Equal(t, "accepted", got.Payload.Action)

	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.server.URL, "http")+"/api/v1/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
