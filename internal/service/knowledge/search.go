package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/sandevgo/replydesk/internal/core"
)

const DefaultLimit = 3

// Field weights for keyword containment scoring.
const (
	titleWeight    = 3
	questionWeight = 2
	answerWeight   = 1
	contentWeight  = 1
)

type Service struct {
	repo core.KnowledgeRepository
}

func NewService(repo core.KnowledgeRepository) *Service {
	return &Service{repo: repo}
}

type scored struct {
	item  core.KnowledgeItem
	score int
}

// Search ranks a business's items against query and returns at most limit
// items with a positive score, best first. Equal scores keep store order.
func (s *Service) Search(ctx context.Context, businessID, query string, limit int) ([]core.KnowledgeItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	items, err := s.repo.ListKnowledge(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}

	var hits []scored
	for _, it := range items {
		if sc := Score(it, terms); sc > 0 {
			hits = append(hits, scored{item: it, score: sc})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]core.KnowledgeItem, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out, nil
}

// Score adds the field weight once per term the field contains.
func Score(it core.KnowledgeItem, terms []string) int {
	title := strings.ToLower(it.Title)
	question := strings.ToLower(it.Question)
	answer := strings.ToLower(it.Answer)
	content := strings.ToLower(it.Content)

	score := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += titleWeight
		}
		if strings.Contains(question, t) {
			score += questionWeight
		}
		if strings.Contains(answer, t) {
			score += answerWeight
		}
		if strings.Contains(content, t) {
			score += contentWeight
		}
	}
	return score
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "your": {}, "are": {}, "can": {},
	"what": {}, "when": {}, "where": {}, "how": {}, "who": {}, "why": {}, "does": {},
	"with": {}, "have": {}, "this": {}, "that": {}, "there": {}, "about": {}, "would": {},
	"like": {}, "want": {}, "need": {}, "please": {}, "from": {}, "any": {}, "our": {},
	"will": {}, "was": {}, "were": {}, "tell": {}, "know": {},
}

// Terms lowercases query and keeps distinct words of three or more letters
// that are not stop words.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Context renders items as prompt snippets.
func Context(items []core.KnowledgeItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Kind == core.KnowledgeFAQ {
			parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", it.Question, it.Answer))
			continue
		}
		parts = append(parts, fmt.Sprintf("Document: %s\n%s", it.Title, it.Content))
	}
	return strings.Join(parts, "\n\n")
}
