package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RESTClient talks to the processor's HTTP API with a platform secret key.
type RESTClient struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewRESTClient(baseURL, secretKey string) *RESTClient {
	return &RESTClient{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RESTClient) do(ctx context.Context, method, path string, body interface{}, idemKey string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("[Processor] %s %s status=%d body=%s", method, path, resp.StatusCode, string(respBody))
		return fmt.Errorf("processor %s %s: %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *RESTClient) CreateCharge(ctx context.Context, req CreateChargeRequest) (*CreateChargeResponse, error) {
	var out CreateChargeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/charges", req, req.IdempotencyKey, &out); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	return &out, nil
}

func (c *RESTClient) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, "", &out); err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return &out, nil
}

func (c *RESTClient) ListCharges(ctx context.Context, accountID string, from, to time.Time, cursor string) (*ChargePage, error) {
	q := url.Values{}
	q.Set("on_behalf_of", accountID)
	q.Set("created_gte", strconv.FormatInt(from.Unix(), 10))
	q.Set("created_lt", strconv.FormatInt(to.Unix(), 10))
	if cursor != "" {
		q.Set("starting_after", cursor)
	}
	var out ChargePage
	if err := c.do(ctx, http.MethodGet, "/v1/charges?"+q.Encode(), nil, "", &out); err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	return &out, nil
}
