package bitflyer

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// restClient is a minimal signed client for the bitFlyer Lightning private
// REST API.
type restClient struct {
	endpoint string
	key      string
	secret   string
	http     *http.Client
}

func newRESTClient(endpoint, key, secret string) *restClient {
	return &restClient{
		endpoint: endpoint,
		key:      key,
		secret:   secret,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// sendChildOrder places a new order and returns the acceptance id.
func (c *restClient) sendChildOrder(ctx context.Context, req childOrderRequest) (string, error) {
	var resp childOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/me/sendchildorder", req, &resp); err != nil {
		return "", err
	}
	return resp.ChildOrderAcceptanceID, nil
}

// cancelChildOrder cancels by acceptance id. bitFlyer returns an empty 200
// body on success.
func (c *restClient) cancelChildOrder(ctx context.Context, req cancelChildOrderRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/me/cancelchildorder", req, nil)
}

// positions fetches all open position lots for product.
func (c *restClient) positions(ctx context.Context, product string) ([]domain.Record, error) {
	var recs []domain.Record
	path := "/v1/me/getpositions?product_code=" + product
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// do issues one signed request. A 4xx response wraps ErrOrderRejected since
// the only private endpoints we call are order management and a client error
// there means the venue refused the command.
func (c *restClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("bitflyer: marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("bitflyer: build request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(timestamp + method + path))
	mac.Write(payload)

	req.Header.Set("ACCESS-KEY", c.key)
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-SIGN", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bitflyer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bitflyer: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := string(data)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.ErrorMessage != "" {
			msg = apiErr.ErrorMessage
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("bitflyer: %s %s: %s: %w", method, path, msg, domain.ErrOrderRejected)
		}
		return fmt.Errorf("bitflyer: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("bitflyer: decode response: %w", err)
		}
	}
	return nil
}
