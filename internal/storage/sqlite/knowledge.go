package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
)

type KnowledgeRepo struct {
	db *sql.DB
}

func NewKnowledgeRepo(db *sql.DB) *KnowledgeRepo {
	return &KnowledgeRepo{db: db}
}

// ListKnowledge returns every item of a business in insertion order.
func (r *KnowledgeRepo) ListKnowledge(ctx context.Context, businessID string) ([]core.KnowledgeItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, kind, title, question, answer, content, source, created_at
		FROM knowledge_items
		WHERE business_id = ?
		ORDER BY seq ASC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	defer rows.Close()

	var out []core.KnowledgeItem
	for rows.Next() {
		var (
			it       core.KnowledgeItem
			kind, ts string
		)
		if err := rows.Scan(&it.ID, &it.BusinessID, &kind, &it.Title, &it.Question, &it.Answer,
			&it.Content, &it.Source, &ts); err != nil {
			return nil, err
		}
		it.Kind = core.KnowledgeKind(kind)
		it.CreatedAt = parseTime(ts)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *KnowledgeRepo) AddKnowledge(ctx context.Context, item *core.KnowledgeItem) error {
	switch item.Kind {
	case core.KnowledgeFAQ:
		if item.Question == "" || item.Answer == "" {
			return core.InvalidInput("faq item requires a question and an answer")
		}
	case core.KnowledgeDoc:
		if item.Content == "" {
			return core.InvalidInput("document item requires content")
		}
	default:
		return core.InvalidInput("unknown knowledge kind %q", item.Kind)
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO knowledge_items (id, business_id, kind, title, question, answer, content, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.BusinessID, string(item.Kind), item.Title, item.Question, item.Answer,
		item.Content, item.Source, formatTime(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert knowledge item: %w", err)
	}
	return nil
}
