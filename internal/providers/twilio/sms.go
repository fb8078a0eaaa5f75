package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/retry"
)

// Client sends outbound SMS through the Twilio REST API.
type Client struct {
	client     *http.Client
	retrier    *retry.Retrier
	baseURL    string
	accountSID string
	authToken  string
}

func NewClient(cfg *config.TwilioConfig) *Client {
	return &Client{
		client:     &http.Client{Timeout: cfg.Timeout},
		retrier:    retry.NewSingleRetrier(),
		baseURL:    cfg.BaseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
	}
}

func (c *Client) SendSMS(ctx context.Context, from, to, body string) error {
	form := url.Values{
		"From": {E164(from)},
		"To":   {E164(to)},
		"Body": {body},
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	err := c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return retry.Permanent(err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("http %d: %s", resp.StatusCode, raw)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return core.ProviderFailure("twilio sms", err)
	}
	return nil
}

// E164 restores the leading '+' that inbound webhooks have stripped.
func E164(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + number
}
