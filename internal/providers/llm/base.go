package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/replydesk/pkg/retry"
)

const defaultHTTPTimeout = 60 * time.Second

type baseProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
	model   string
}

func newBaseProvider(baseURL, apiKey, model string) baseProvider {
	return baseProvider{
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		retrier: retry.NewSingleRetrier(),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// statusError is returned for non-2xx responses.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// postJSON sends body and returns the raw 200 response payload. Transport errors,
// 429 and 5xx are retried once; other statuses fail immediately.
func (b *baseProvider) postJSON(ctx context.Context, path string, body any, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var data []byte
	err = b.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			serr := &statusError{Code: resp.StatusCode, Body: truncate(string(raw), 512)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return serr
			}
			return retry.Permanent(serr)
		}
		data = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
