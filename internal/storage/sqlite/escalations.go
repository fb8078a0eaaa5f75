package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
)

type EscalationRepo struct {
	db *sql.DB
}

func NewEscalationRepo(db *sql.DB) *EscalationRepo {
	return &EscalationRepo{db: db}
}

// Escalate flips an OPEN conversation to ESCALATED and writes the escalation
// record in one transaction. The conditional update makes it happen at most
// once per conversation; later callers get nil, nil.
func (r *EscalationRepo) Escalate(ctx context.Context, conversationID, reason string) (*core.Escalation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET status = 'ESCALATED', updated_at = ? WHERE id = ? AND status = 'OPEN'`,
		formatTime(ts), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to escalate conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := getConversation(ctx, tx, conversationID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	c, err := getConversation(ctx, tx, conversationID)
	if err != nil {
		return nil, err
	}

	e := &core.Escalation{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		BusinessID:     c.BusinessID,
		Reason:         reason,
		CreatedAt:      ts,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO escalations (id, conversation_id, business_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ConversationID, e.BusinessID, e.Reason, formatTime(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert escalation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEscalations returns the newest escalations of a business first.
func (r *EscalationRepo) ListEscalations(ctx context.Context, businessID string, limit int) ([]core.Escalation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, business_id, reason, created_at
		FROM escalations
		WHERE business_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var out []core.Escalation
	for rows.Next() {
		var (
			e  core.Escalation
			ts string
		)
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.BusinessID, &e.Reason, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
