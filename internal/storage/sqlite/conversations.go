package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, business_id, contact_id, channel, status, language, sentiment,
	sentiment_score, priority, sentiment_count, summary, created_at, updated_at`

// GetOrCreateConversation returns the OPEN conversation for the contact on the
// channel, creating one if none exists. The partial unique index guarantees a
// single winner when two requests race.
func (r *ConversationRepo) GetOrCreateConversation(ctx context.Context, businessID, contactID string, channel core.Channel) (*core.Conversation, error) {
	if !channel.Valid() {
		return nil, core.InvalidInput("unknown channel %q", channel)
	}

	c, err := r.findOpen(ctx, contactID, channel)
	if err != nil || c != nil {
		return c, err
	}

	ts := now()
	c = &core.Conversation{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		ContactID:  contactID,
		Channel:    channel,
		Status:     core.StatusOpen,
		Language:   core.DefaultLanguage,
		Sentiment:  core.SentimentNeutral,
		Priority:   core.SentimentNeutral.Priority(),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, business_id, contact_id, channel, status, language, sentiment, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, businessID, contactID, string(channel), string(c.Status), c.Language, string(c.Sentiment), c.Priority,
		formatTime(ts), formatTime(ts))
	if err == nil {
		return c, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	c, err = r.findOpen(ctx, contactID, channel)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, core.StateConflict(fmt.Errorf("open conversation for contact %s on %s vanished", contactID, channel))
	}
	return c, nil
}

func (r *ConversationRepo) findOpen(ctx context.Context, contactID string, channel core.Channel) (*core.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE contact_id = ? AND channel = ? AND status = 'OPEN'`, contactID, string(channel))
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	return getConversation(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getConversation(ctx context.Context, q queryer, id string) (*core.Conversation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("conversation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return c, nil
}

func allowedTransition(from, to core.ConversationStatus) bool {
	switch from {
	case core.StatusOpen:
		return to == core.StatusResolved || to == core.StatusEscalated
	case core.StatusEscalated:
		return to == core.StatusResolved
	}
	return false
}

// UpdateConversationStatus moves a conversation along OPEN -> ESCALATED -> RESOLVED.
// Escalation with a record goes through Escalate instead.
func (r *ConversationRepo) UpdateConversationStatus(ctx context.Context, id string, status core.ConversationStatus, summary *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := getConversation(ctx, tx, id)
	if err != nil {
		return err
	}
	if !allowedTransition(c.Status, status) {
		return core.InvalidInput("conversation %s cannot move from %s to %s", id, c.Status, status)
	}

	if summary != nil {
		_, err = tx.ExecContext(ctx, `UPDATE conversations SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
			string(status), *summary, formatTime(now()), id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), formatTime(now()), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	return tx.Commit()
}

func (r *ConversationRepo) SetConversationLanguage(ctx context.Context, id, language string) error {
	if language == "" {
		return nil
	}
	return r.touch(ctx, `UPDATE conversations SET language = ?, updated_at = ? WHERE id = ?`, id, language)
}

func (r *ConversationRepo) SetSummary(ctx context.Context, id, summary string) error {
	return r.touch(ctx, `UPDATE conversations SET summary = ?, updated_at = ? WHERE id = ?`, id, summary)
}

func (r *ConversationRepo) touch(ctx context.Context, query, id, value string) error {
	res, err := r.db.ExecContext(ctx, query, value, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("conversation", id)
	}
	return nil
}

// RecordSentiment folds s into the rolling average. Priority follows the worse
// of the rolling label and the latest message.
func (r *ConversationRepo) RecordSentiment(ctx context.Context, id string, s core.Sentiment) (*core.Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := getConversation(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	n := float64(c.SentimentCount)
	c.SentimentScore = (c.SentimentScore*n + s.Score) / (n + 1)
	c.SentimentCount++
	c.Sentiment = core.SentimentFromScore(c.SentimentScore)
	c.Priority = max(c.Sentiment.Priority(), s.Label.Priority())
	c.UpdatedAt = now()

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET sentiment = ?, sentiment_score = ?, sentiment_count = ?, priority = ?, updated_at = ?
		WHERE id = ?`,
		string(c.Sentiment), c.SentimentScore, c.SentimentCount, c.Priority, formatTime(c.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to record sentiment: %w", err)
	}
	return c, tx.Commit()
}

// ListConversations returns the most recently updated conversations of a
// business. An empty status lists all of them.
func (r *ConversationRepo) ListConversations(ctx context.Context, businessID string, status core.ConversationStatus, limit int) ([]core.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE business_id = ?`
	args := []any{businessID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY priority DESC, updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []core.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanConversation(s scanner) (*core.Conversation, error) {
	var (
		c                          core.Conversation
		channel, status, sentiment string
		createdAt, updatedAt       string
	)
	err := s.Scan(&c.ID, &c.BusinessID, &c.ContactID, &channel, &status, &c.Language, &sentiment,
		&c.SentimentScore, &c.Priority, &c.SentimentCount, &c.Summary, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Channel = core.Channel(channel)
	c.Status = core.ConversationStatus(status)
	c.Sentiment = core.SentimentLabel(sentiment)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
