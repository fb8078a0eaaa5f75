package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/sandevgo/replydesk/pkg/tokens"
)

// FAQEntry is one record of a FAQ import file.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Importer struct {
	repo    core.KnowledgeRepository
	chunker tokens.ChunkerConfig
}

func NewImporter(repo core.KnowledgeRepository) *Importer {
	return &Importer{repo: repo, chunker: tokens.DocumentChunkerConfig()}
}

// ImportFile stores the file as knowledge for businessID and returns the number
// of items created. JSON files are FAQ lists; .md, .txt, .html and .pdf files
// are split into document chunks.
func (im *Importer) ImportFile(ctx context.Context, businessID, path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return im.ImportFAQ(ctx, businessID, data, filepath.Base(path))
	}

	text, err := readDocument(path, ext)
	if err != nil {
		return 0, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return im.ImportDocument(ctx, businessID, title, text, filepath.Base(path))
}

func (im *Importer) ImportFAQ(ctx context.Context, businessID string, data []byte, source string) (int, error) {
	var entries []FAQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, core.InvalidInput("faq file must be a JSON array of {question, answer}: %v", err)
	}

	n := 0
	for _, e := range entries {
		item := &core.KnowledgeItem{
			BusinessID: businessID,
			Kind:       core.KnowledgeFAQ,
			Question:   strings.TrimSpace(e.Question),
			Answer:     strings.TrimSpace(e.Answer),
			Source:     source,
		}
		if err := im.repo.AddKnowledge(ctx, item); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (im *Importer) ImportDocument(ctx context.Context, businessID, title, text, source string) (int, error) {
	chunks := tokens.ChunkText(text, im.chunker)
	if len(chunks) == 0 {
		return 0, core.InvalidInput("%s has no text to import", source)
	}

	for i, ch := range chunks {
		t := title
		if len(chunks) > 1 {
			t = fmt.Sprintf("%s (part %d)", title, i+1)
		}
		item := &core.KnowledgeItem{
			BusinessID: businessID,
			Kind:       core.KnowledgeDoc,
			Title:      t,
			Content:    ch.Text,
			Source:     source,
		}
		if err := im.repo.AddKnowledge(ctx, item); err != nil {
			return i, err
		}
	}

	log.FromCtx(ctx).Info().
		Str("source", source).
		Int("chunks", len(chunks)).
		Msg("document imported")
	return len(chunks), nil
}

func readDocument(path, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return readPDF(path)
	case ".md", ".markdown", ".txt", ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		if ext == ".html" || ext == ".htm" {
			return conv.HTMLToText(string(data)), nil
		}
		return string(data), nil
	default:
		return "", core.InvalidInput("unsupported knowledge file type %q", ext)
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
