package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
)

type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

const contactColumns = `id, business_id, phone, email, name, preferences, total_interactions,
	last_interaction_at, created_at, updated_at`

// FindOrCreateContact looks the contact up by phone, then by email, and creates
// it when neither matches. A missing name is backfilled, an existing one kept.
func (r *ContactRepo) FindOrCreateContact(ctx context.Context, businessID string, ref core.ContactRef) (*core.Contact, error) {
	ref = normalizeRef(ref)
	if ref.Phone == "" && ref.Email == "" {
		return nil, core.InvalidInput("contact requires a phone number or email address")
	}

	for attempt := 0; attempt < 2; attempt++ {
		c, err := r.lookup(ctx, businessID, ref)
		if err != nil {
			return nil, err
		}
		if c != nil {
			if c.Name == "" && ref.Name != "" {
				if err := r.backfillName(ctx, c.ID, ref.Name); err != nil {
					return nil, err
				}
				c.Name = ref.Name
			}
			return c, nil
		}

		c, err = r.insert(ctx, businessID, ref)
		if err == nil {
			return c, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		// created concurrently, read it back
	}
	return nil, core.StateConflict(fmt.Errorf("contact for business %s could not be resolved", businessID))
}

func (r *ContactRepo) lookup(ctx context.Context, businessID string, ref core.ContactRef) (*core.Contact, error) {
	if ref.Phone != "" {
		c, err := r.getBy(ctx, `business_id = ? AND phone = ?`, businessID, ref.Phone)
		if err != nil || c != nil {
			return c, err
		}
	}
	if ref.Email != "" {
		return r.getBy(ctx, `business_id = ? AND email = ?`, businessID, ref.Email)
	}
	return nil, nil
}

func (r *ContactRepo) getBy(ctx context.Context, where string, args ...any) (*core.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE `+where+` LIMIT 1`, args...)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepo) insert(ctx context.Context, businessID string, ref core.ContactRef) (*core.Contact, error) {
	ts := now()
	c := &core.Contact{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Phone:      ref.Phone,
		Email:      ref.Email,
		Name:       ref.Name,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, business_id, phone, email, name, preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '{}', ?, ?)`,
		c.ID, businessID, c.Phone, c.Email, c.Name, formatTime(ts), formatTime(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepo) backfillName(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, updated_at = ? WHERE id = ? AND name = ''`,
		name, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("failed to backfill contact name: %w", err)
	}
	return nil
}

func (r *ContactRepo) GetContact(ctx context.Context, id string) (*core.Contact, error) {
	c, err := r.getBy(ctx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, core.NotFound("contact", id)
	}
	return c, nil
}

// UpdateContactPreferences merges prefs into the stored blob, stamps the last
// interaction and bumps the interaction counter.
func (r *ContactRepo) UpdateContactPreferences(ctx context.Context, contactID string, prefs core.ContactPreferences) (*core.Contact, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, contactID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("contact", contactID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}

	c.Preferences = mergePreferences(c.Preferences, prefs)
	ts := now()
	c.LastInteractionAt = &ts
	c.TotalInteractions++
	c.UpdatedAt = ts

	data, err := json.Marshal(c.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE contacts
		SET preferences = ?, last_interaction_at = ?, total_interactions = total_interactions + 1, updated_at = ?
		WHERE id = ?`,
		string(data), formatTime(ts), formatTime(ts), contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact preferences: %w", err)
	}
	return c, tx.Commit()
}

func mergePreferences(base, in core.ContactPreferences) core.ContactPreferences {
	if in.Language != "" {
		base.Language = in.Language
	}
	if in.PreferredChannel != "" {
		base.PreferredChannel = in.PreferredChannel
	}
	if len(in.Extra) > 0 {
		if base.Extra == nil {
			base.Extra = make(map[string]string, len(in.Extra))
		}
		for k, v := range in.Extra {
			base.Extra[k] = v
		}
	}
	return base
}

func normalizeRef(ref core.ContactRef) core.ContactRef {
	return core.ContactRef{
		Phone: strings.TrimSpace(ref.Phone),
		Email: strings.ToLower(strings.TrimSpace(ref.Email)),
		Name:  strings.TrimSpace(ref.Name),
	}
}

func scanContact(s scanner) (*core.Contact, error) {
	var (
		c                    core.Contact
		prefs                string
		lastInteraction      sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&c.ID, &c.BusinessID, &c.Phone, &c.Email, &c.Name, &prefs, &c.TotalInteractions,
		&lastInteraction, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &c.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	c.LastInteractionAt = parseNullTime(lastInteraction)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
