package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (h *MessagesRepo) AppendMessage(ctx context.Context, conversationID string, role core.MessageRole, content string, meta core.Metadata) (*core.StoredMessage, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	msg := &core.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       meta,
		CreatedAt:      now(),
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, string(role), content, string(metaJSON), formatTime(msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(msg.CreatedAt), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.NotFound("conversation", conversationID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().
		Str("conversation_id", conversationID).
		Str("role", string(role)).
		Int("len", len(content)).
		Msg("message stored")

	return msg, nil
}

// AttachMetadata adds v to the message's metadata, replacing any variant of the same kind.
func (h *MessagesRepo) AttachMetadata(ctx context.Context, messageID string, v core.MetadataVariant) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT metadata FROM messages WHERE id = ?`, messageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound("message", messageID)
	}
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	var meta core.Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	data, err := json.Marshal(meta.With(v))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE messages SET metadata = ? WHERE id = ?`, string(data), messageID); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	return tx.Commit()
}

// RecentMessages returns up to limit newest messages in chronological order.
func (h *MessagesRepo) RecentMessages(ctx context.Context, conversationID string, limit int) ([]core.StoredMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.StoredMessage
	for rows.Next() {
		var (
			m              core.StoredMessage
			role, meta, ts string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &meta, &ts); err != nil {
			return nil, err
		}
		m.Role = core.MessageRole(role)
		m.CreatedAt = parseTime(ts)
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("message_id", m.ID).Msg("failed to decode message metadata")
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order (oldest -> newest)
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}
