package calendly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/retry"
)

// Client reads availability from the Calendly v2 API using a business's
// personal access token.
type Client struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
}

func NewClient(cfg *config.CalendlyConfig) *Client {
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		retrier: retry.NewSingleRetrier(),
		baseURL: cfg.BaseURL,
	}
}

type userResponse struct {
	Resource struct {
		URI string `json:"uri"`
	} `json:"resource"`
}

type eventTypesResponse struct {
	Collection []struct {
		URI           string `json:"uri"`
		Name          string `json:"name"`
		Active        bool   `json:"active"`
		SchedulingURL string `json:"scheduling_url"`
	} `json:"collection"`
}

type availableTimesResponse struct {
	Collection []struct {
		Status    string    `json:"status"`
		StartTime time.Time `json:"start_time"`
	} `json:"collection"`
}

// AvailableTimes returns open start times of the token owner's first active
// event type between from and to, plus that event type's booking URL.
func (c *Client) AvailableTimes(ctx context.Context, token string, from, to time.Time) ([]time.Time, string, error) {
	var user userResponse
	if err := c.get(ctx, token, "/users/me", nil, &user); err != nil {
		return nil, "", core.ProviderFailure("calendly user lookup", err)
	}

	var types eventTypesResponse
	q := url.Values{"user": {user.Resource.URI}, "active": {"true"}}
	if err := c.get(ctx, token, "/event_types", q, &types); err != nil {
		return nil, "", core.ProviderFailure("calendly event types", err)
	}
	if len(types.Collection) == 0 {
		return nil, "", nil
	}
	et := types.Collection[0]

	var avail availableTimesResponse
	q = url.Values{
		"event_type": {et.URI},
		"start_time": {from.UTC().Format(time.RFC3339)},
		"end_time":   {to.UTC().Format(time.RFC3339)},
	}
	if err := c.get(ctx, token, "/event_type_available_times", q, &avail); err != nil {
		return nil, "", core.ProviderFailure("calendly availability", err)
	}

	var slots []time.Time
	for _, s := range avail.Collection {
		if s.Status == "" || s.Status == "available" {
			slots = append(slots, s.StartTime)
		}
	}
	return slots, et.SchedulingURL, nil
}

func (c *Client) get(ctx context.Context, token, path string, q url.Values, dst any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	return c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", core.AppUserAgent)

		resp, err := c.client.Do(req)
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
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return retry.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	})
}
