package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/account-service/internal/application/account"
)

const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Client validates Cloudflare Turnstile tokens against siteverify.
type Client struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

func NewClient(secret, verifyURL string, timeout time.Duration) *Client {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		secret:    secret,
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// siteverifyResponse from Cloudflare
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	Action      string   `json:"action,omitempty"`
}

// Verify posts the token. Transport errors and non-200 answers come back as
// errors; the caller treats them as a failed check.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (account.VerifyResult, error) {
	data := url.Values{
		"secret":   {c.secret},
		"response": {token},
	}
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return account.VerifyResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return account.VerifyResult{}, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return account.VerifyResult{}, fmt.Errorf("failed to read siteverify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return account.VerifyResult{}, fmt.Errorf("siteverify returned %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return account.VerifyResult{}, fmt.Errorf("failed to parse siteverify response: %w", err)
	}
	return account.VerifyResult{Success: out.Success, ErrorCodes: out.ErrorCodes}, nil
}
