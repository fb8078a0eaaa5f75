package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/core"
)

type BusinessRepo struct {
	db *sql.DB
}

func NewBusinessRepo(db *sql.DB) *BusinessRepo {
	return &BusinessRepo{db: db}
}

const businessColumns = `id, name, phone, email, timezone, hours, services, pricing_notes, tone, persona,
	escalation_contacts, web_search_enabled, crm_sync_enabled, calendly_link, calendly_token, created_at`

func (r *BusinessRepo) GetBusiness(ctx context.Context, id string) (*core.Business, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id)
	b, err := scanBusiness(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("business", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	return b, nil
}

func (r *BusinessRepo) ListBusinesses(ctx context.Context) ([]core.Business, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	var out []core.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// SaveBusiness inserts b or replaces the existing row with the same id.
// An empty id is assigned a new one.
func (r *BusinessRepo) SaveBusiness(ctx context.Context, b *core.Business) error {
	if b.Name == "" {
		return core.InvalidInput("business name is required")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}

	hours := ""
	if b.Hours != nil {
		data, err := json.Marshal(b.Hours)
		if err != nil {
			return fmt.Errorf("failed to marshal hours: %w", err)
		}
		hours = string(data)
	}
	services, err := json.Marshal(nonNil(b.Services))
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}
	persona, err := json.Marshal(b.Persona)
	if err != nil {
		return fmt.Errorf("failed to marshal persona: %w", err)
	}
	contacts, err := json.Marshal(nonNil(b.EscalationContacts))
	if err != nil {
		return fmt.Errorf("failed to marshal escalation contacts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO businesses (`+businessColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, phone = excluded.phone, email = excluded.email,
			timezone = excluded.timezone, hours = excluded.hours, services = excluded.services,
			pricing_notes = excluded.pricing_notes, tone = excluded.tone, persona = excluded.persona,
			escalation_contacts = excluded.escalation_contacts,
			web_search_enabled = excluded.web_search_enabled, crm_sync_enabled = excluded.crm_sync_enabled,
			calendly_link = excluded.calendly_link, calendly_token = excluded.calendly_token`,
		b.ID, b.Name, b.Phone, b.Email, b.Timezone, hours, string(services), b.PricingNotes, b.Tone,
		string(persona), string(contacts), b.Features.WebSearch, b.Features.CRMSync,
		b.CalendlyLink, b.CalendlyToken, formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save business: %w", err)
	}
	return nil
}

func scanBusiness(s scanner) (*core.Business, error) {
	var (
		b                                  core.Business
		hours, services, persona, contacts string
		createdAt                          string
	)
	err := s.Scan(&b.ID, &b.Name, &b.Phone, &b.Email, &b.Timezone, &hours, &services, &b.PricingNotes,
		&b.Tone, &persona, &contacts, &b.Features.WebSearch, &b.Features.CRMSync,
		&b.CalendlyLink, &b.CalendlyToken, &createdAt)
	if err != nil {
		return nil, err
	}

	if hours != "" {
		if err := json.Unmarshal([]byte(hours), &b.Hours); err != nil {
			return nil, fmt.Errorf("decode hours: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(services), &b.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := json.Unmarshal([]byte(persona), &b.Persona); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	if err := json.Unmarshal([]byte(contacts), &b.EscalationContacts); err != nil {
		return nil, fmt.Errorf("decode escalation contacts: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
