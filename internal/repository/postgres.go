package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerlink/backend/internal/domain"
)

// PostgresRepository implements the profile, request and chat stores on PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NewPool opens and pings a connection pool
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

const profileColumns = `id, first_name, role, primary_category, secondary_category, support_tags, interests,
	age_bracket, stage_descriptor, stage_kind, stage_number, stage_numbered, recurrence, available, building, floor, bio,
	created_at, updated_at`

// SaveProfile upserts a profile
func (r *PostgresRepository) SaveProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			role = EXCLUDED.role,
			primary_category = EXCLUDED.primary_category,
			secondary_category = EXCLUDED.secondary_category,
			support_tags = EXCLUDED.support_tags,
			interests = EXCLUDED.interests,
			age_bracket = EXCLUDED.age_bracket,
			stage_descriptor = EXCLUDED.stage_descriptor,
			stage_kind = EXCLUDED.stage_kind,
			stage_number = EXCLUDED.stage_number,
			stage_numbered = EXCLUDED.stage_numbered,
			recurrence = EXCLUDED.recurrence,
			available = EXCLUDED.available,
			building = EXCLUDED.building,
			floor = EXCLUDED.floor,
			bio = EXCLUDED.bio,
			updated_at = EXCLUDED.updated_at
	`

	stage := p.ParsedStage()
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.FirstName,
		string(p.Role),
		p.PrimaryCategory,
		p.SecondaryCategory,
		nonNil(p.SupportTags),
		nonNil(p.Interests),
		p.AgeBracket,
		p.StageDescriptor,
		string(stage.Kind),
		stage.N,
		stage.Numbered,
		p.Recurrence,
		p.Available,
		p.Building,
		p.Floor,
		p.Bio,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return domain.StoreError("save profile", err)
}

// GetProfile retrieves a profile by user ID
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, domain.StoreError("get profile", err)
	}
	return p, nil
}

// ListProfilesByRole returns all profiles of a role, oldest first
func (r *PostgresRepository) ListProfilesByRole(ctx context.Context, role domain.Role) ([]*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, string(role))
	if err != nil {
		return nil, domain.StoreError("list profiles", err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, domain.StoreError("list profiles", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, domain.StoreError("list profiles", rows.Err())
}

// SetAvailability toggles the availability flag
func (r *PostgresRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET available = $2, updated_at = NOW() WHERE id = $1`, userID, available)
	if err != nil {
		return domain.StoreError("set availability", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const requestColumns = `id, sender_id, sender_name, receiver_id, receiver_name, status, created_at, updated_at`

// CreateConnectionRequest inserts a pending request. The partial unique index on
// pair_key turns a concurrent duplicate into a unique violation.
func (r *PostgresRepository) CreateConnectionRequest(ctx context.Context, req *domain.ConnectionRequest) error {
	query := `
		INSERT INTO connection_requests (id, pair_key, sender_id, sender_name, receiver_id, receiver_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.PairKey(),
		req.SenderID,
		req.SenderName,
		req.ReceiverID,
		req.ReceiverName,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRequest
	}
	return domain.StoreError("create connection request", err)
}

// GetConnectionRequest retrieves a request by ID
func (r *PostgresRepository) GetConnectionRequest(ctx context.Context, requestID string) (*domain.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		return nil, domain.StoreError("get connection request", err)
	}
	return req, nil
}

// FindActiveRequest looks the pair up in both directions
func (r *PostgresRepository) FindActiveRequest(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	query := `
		SELECT ` + requestColumns + ` FROM connection_requests
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND status IN ('pending', 'accepted')
		ORDER BY created_at DESC
		LIMIT 1
	`
	req, err := scanRequest(r.db.QueryRow(ctx, query, userA, userB))
	if err != nil {
		return nil, domain.StoreError("find active request", err)
	}
	return req, nil
}

// UpdateConnectionRequestStatus sets the status and returns the updated record
func (r *PostgresRepository) UpdateConnectionRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus, at time.Time) (*domain.ConnectionRequest, error) {
	query := `
		UPDATE connection_requests SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID, string(status), at))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateRequest
	}
	if err != nil {
		return nil, domain.StoreError("update connection request", err)
	}
	return req, nil
}

// DeleteConnectionRequest removes a request record
func (r *PostgresRepository) DeleteConnectionRequest(ctx context.Context, requestID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM connection_requests WHERE id = $1`, requestID)
	if err != nil {
		return domain.StoreError("delete connection request", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListConnectionRequests lists requests sent or received by a user with the given status
func (r *PostgresRepository) ListConnectionRequests(ctx context.Context, userID string, direction domain.RequestDirection, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	column := "receiver_id"
	if direction == domain.DirectionSent {
		column = "sender_id"
	}
	query := `SELECT ` + requestColumns + ` FROM connection_requests WHERE ` + column + ` = $1 AND status = $2 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, domain.StoreError("list connection requests", err)
	}
	defer rows.Close()

	var requests []*domain.ConnectionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, domain.StoreError("list connection requests", err)
		}
		requests = append(requests, req)
	}
	return requests, domain.StoreError("list connection requests", rows.Err())
}

const chatColumns = `id, participants, participant_names, last_message, last_message_at, created_at`

// CreateChatIfNotExists inserts a chat, doing nothing if the ID is taken
func (r *PostgresRepository) CreateChatIfNotExists(ctx context.Context, chat *domain.Chat) (bool, error) {
	names, err := json.Marshal(chat.ParticipantNames)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO chats (id, participants, participant_names, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, chat.ID, chat.Participants, string(names), chat.LastMessageAt, chat.CreatedAt)
	if err != nil {
		return false, domain.StoreError("create chat", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ChatExists checks whether a chat ID is taken
func (r *PostgresRepository) ChatExists(ctx context.Context, chatID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists)
	return exists, domain.StoreError("chat exists", err)
}

// GetChat retrieves a chat by ID
func (r *PostgresRepository) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	chat, err := scanChat(r.db.QueryRow(ctx, query, chatID))
	if err != nil {
		return nil, domain.StoreError("get chat", err)
	}
	return chat, nil
}

// ListChatsForUser returns the chats a user participates in
func (r *PostgresRepository) ListChatsForUser(ctx context.Context, userID string) ([]*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE $1 = ANY(participants) ORDER BY last_message_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.StoreError("list chats", err)
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, domain.StoreError("list chats", err)
		}
		chats = append(chats, chat)
	}
	return chats, domain.StoreError("list chats", rows.Err())
}

// MergeLastMessage overwrites the last-message summary of a chat
func (r *PostgresRepository) MergeLastMessage(ctx context.Context, chatID string, msg domain.LastMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE chats SET last_message = $2, last_message_at = $3 WHERE id = $1`,
		chatID, string(payload), msg.CreatedAt,
	)
	if err != nil {
		return domain.StoreError("merge last message", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Helper functions for scanning rows

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var role, stageKind string
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&role,
		&p.PrimaryCategory,
		&p.SecondaryCategory,
		&p.SupportTags,
		&p.Interests,
		&p.AgeBracket,
		&p.StageDescriptor,
		&stageKind,
		&p.Stage.N,
		&p.Stage.Numbered,
		&p.Recurrence,
		&p.Available,
		&p.Building,
		&p.Floor,
		&p.Bio,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Role = domain.Role(role)
	p.Stage.Kind = domain.StageKind(stageKind)
	return &p, nil
}

func scanRequest(row pgx.Row) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	var status string
	err := row.Scan(
		&req.ID,
		&req.SenderID,
		&req.SenderName,
		&req.ReceiverID,
		&req.ReceiverName,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var chat domain.Chat
	var names, lastMessage []byte
	err := row.Scan(
		&chat.ID,
		&chat.Participants,
		&names,
		&lastMessage,
		&chat.LastMessageAt,
		&chat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	chat.ParticipantNames = map[string]string{}
	if len(names) > 0 {
		if err := json.Unmarshal(names, &chat.ParticipantNames); err != nil {
			return nil, err
		}
	}
	if len(lastMessage) > 0 {
		var msg domain.LastMessage
		if err := json.Unmarshal(lastMessage, &msg); err != nil {
			return nil, err
		}
		chat.LastMessage = &msg
	}
	return &chat, nil
}

// isUniqueViolation checks for a unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
