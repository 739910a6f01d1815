package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the custody service over HTTP. Transfer instructions are
// throttled so a burst of commands cannot flood the substrate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a treasury client. perSecond bounds outbound transfer
// instructions; values <= 0 fall back to 20/s.
func NewClient(baseURL string, perSecond int) *Client {
	if perSecond <= 0 {
		perSecond = 20
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

type escrowInRequest struct {
	CampaignID int64 `json:"campaign_id"`
	Amount     int64 `json:"amount"`
}

type payOutRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

func (c *Client) EscrowIn(ctx context.Context, campaignID int64, amount int64) error {
	return c.post(ctx, "/v1/escrow/in", escrowInRequest{CampaignID: campaignID, Amount: amount})
}

func (c *Client) PayOut(ctx context.Context, address string, amount int64) error {
	return c.post(ctx, "/v1/escrow/out", payOutRequest{Address: address, Amount: amount})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("treasury rate limit: %w", err)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call treasury: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("treasury returned status %d: %s", resp.StatusCode, string(msg))
	}

	return nil
}
