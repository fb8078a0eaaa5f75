package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/retry"
)

// Brave queries the Brave Search web API.
type Brave struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
}

func NewBrave(cfg *config.WebSearchConfig) *Brave {
	return &Brave{
		client:  &http.Client{Timeout: cfg.Timeout},
		retrier: retry.NewSingleRetrier(),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string, limit int) ([]core.WebResult, error) {
	if limit <= 0 {
		limit = 3
	}
	q := url.Values{"q": {query}, "count": {strconv.Itoa(limit)}}
	u := b.baseURL + "/res/v1/web/search?" + q.Encode()

	var data braveResponse
	err := b.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", b.apiKey)

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("http %d: %s", resp.StatusCode, body)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return retry.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, core.ProviderFailure("web search", err)
	}

	results := data.Web.Results
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]core.WebResult, 0, len(results))
	for i, r := range results {
		out = append(out, core.WebResult{
			Title:   strings.TrimSpace(conv.HTMLToText(r.Title)),
			URL:     r.URL,
			Snippet: strings.TrimSpace(conv.HTMLToText(r.Description)),
			// Brave returns results best first.
			RelevanceScore: 1 - float64(i)/float64(len(results)),
		})
	}
	return out, nil
}
