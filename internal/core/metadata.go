package core

import (
	"encoding/json"
	"fmt"
)

// MetadataKind tags one variant of message metadata.
type MetadataKind string

const (
	MetaChannelPayload MetadataKind = "channel_payload"
	MetaAnalysis       MetadataKind = "analysis"
	MetaScheduling     MetadataKind = "scheduling"
	MetaWebSearch      MetadataKind = "web_search"
)

// MetadataVariant is implemented only by the variant types in this file.
type MetadataVariant interface {
	Kind() MetadataKind
}

// ChannelPayload records where an inbound message came from.
type ChannelPayload struct {
	Channel    Channel `json:"channel"`
	ExternalID string  `json:"externalId,omitempty"`
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	Subject    string  `json:"subject,omitempty"`
}

func (ChannelPayload) Kind() MetadataKind { return MetaChannelPayload }

// Analysis is attached to a user message after sentiment and intent analysis.
type Analysis struct {
	Sentiment        Sentiment   `json:"sentiment"`
	Language         string      `json:"language,omitempty"`
	SchedulingIntent bool        `json:"schedulingIntent"`
	Objection        bool        `json:"objection"`
	EscalationMatch  bool        `json:"escalationMatch"`
	Suggestion       *Suggestion `json:"suggestion,omitempty"`
}

func (Analysis) Kind() MetadataKind { return MetaAnalysis }

// SchedulingTag is attached to an assistant reply that carried scheduling info.
type SchedulingTag struct {
	Info SchedulingInfo `json:"info"`
}

func (SchedulingTag) Kind() MetadataKind { return MetaScheduling }

type WebSearchTag struct {
	Used    bool `json:"used"`
	Results int  `json:"results"`
}

func (WebSearchTag) Kind() MetadataKind { return MetaWebSearch }

// Metadata is an ordered set of typed variants, at most one per kind.
type Metadata struct {
	variants []MetadataVariant
}

func NewMetadata(vs ...MetadataVariant) Metadata {
	var m Metadata
	for _, v := range vs {
		m = m.With(v)
	}
	return m
}

// With returns a copy of m where v replaces any variant of the same kind.
func (m Metadata) With(v MetadataVariant) Metadata {
	if v == nil {
		return m
	}
	out := make([]MetadataVariant, 0, len(m.variants)+1)
	for _, existing := range m.variants {
		if existing.Kind() != v.Kind() {
			out = append(out, existing)
		}
	}
	return Metadata{variants: append(out, v)}
}

func (m Metadata) Empty() bool { return len(m.variants) == 0 }

func (m Metadata) Variants() []MetadataVariant {
	return append([]MetadataVariant(nil), m.variants...)
}

func (m Metadata) find(k MetadataKind) MetadataVariant {
	for _, v := range m.variants {
		if v.Kind() == k {
			return v
		}
	}
	return nil
}

func (m Metadata) ChannelPayload() (ChannelPayload, bool) {
	v, ok := m.find(MetaChannelPayload).(ChannelPayload)
	return v, ok
}

func (m Metadata) Analysis() (Analysis, bool) {
	v, ok := m.find(MetaAnalysis).(Analysis)
	return v, ok
}

func (m Metadata) Scheduling() (SchedulingTag, bool) {
	v, ok := m.find(MetaScheduling).(SchedulingTag)
	return v, ok
}

func (m Metadata) WebSearch() (WebSearchTag, bool) {
	v, ok := m.find(MetaWebSearch).(WebSearchTag)
	return v, ok
}

type envelope struct {
	Kind MetadataKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	envs := make([]envelope, 0, len(m.variants))
	for _, v := range m.variants {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s metadata: %w", v.Kind(), err)
		}
		envs = append(envs, envelope{Kind: v.Kind(), Data: data})
	}
	return json.Marshal(envs)
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	var envs []envelope
	if err := json.Unmarshal(b, &envs); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	var out Metadata
	for _, e := range envs {
		v, err := decodeVariant(e)
		if err != nil {
			return err
		}
		out = out.With(v)
	}
	*m = out
	return nil
}

func decodeVariant(e envelope) (MetadataVariant, error) {
	switch e.Kind {
	case MetaChannelPayload:
		var v ChannelPayload
		err := decodeInto(e, &v)
		return v, err
	case MetaAnalysis:
		var v Analysis
		err := decodeInto(e, &v)
		return v, err
	case MetaScheduling:
		var v SchedulingTag
		err := decodeInto(e, &v)
		return v, err
	case MetaWebSearch:
		var v WebSearchTag
		err := decodeInto(e, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", e.Kind)
	}
}

func decodeInto(e envelope, dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s metadata: %w", e.Kind, err)
	}
	return nil
}
