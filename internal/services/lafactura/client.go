package lafactura

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	invoiceEndpoint = "invoice/"
	generalEndpoint = "general/"
)

// Client talks to the LaFactura.co REST API. Credentials are per account,
// so they are passed per call rather than held on the client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a LaFactura client for the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// post sends one basic-auth JSON request and decodes the body into out.
// The service reports business rejections inside the JSON body, so the body
// is decoded regardless of the HTTP status.
func (c *Client) post(ctx context.Context, endpoint string, creds Credentials, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("lafactura: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("lafactura: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("lafactura: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lafactura: failed to read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("lafactura: failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	return nil
}

// Submit posts a mapped document to the invoice endpoint and returns the
// service's verdict
func (c *Client) Submit(ctx context.Context, creds Credentials, payload json.RawMessage) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.post(ctx, invoiceEndpoint, creds, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyStatus polls the finalization state of a previously submitted
// document identified by its tascode
func (c *Client) VerifyStatus(ctx context.Context, creds Credentials, tasCode string) (*StatusResponse, error) {
	var req verifyStatusRequest
	req.VerifyStatus.TasCode = tasCode

	var out StatusResponse
	if err := c.post(ctx, invoiceEndpoint, creds, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveRanges queries the active numbering ranges of the account. The
// mapper needs the range prefix of each kind, and the status endpoint uses
// the call as a liveness probe of the signing account.
func (c *Client) ActiveRanges(ctx context.Context, creds Credentials) (*RangesResponse, error) {
	var req getRangesRequest
	req.GetRanges.Mode = "active"
	req.GetRanges.Type = "all"

	var out RangesResponse
	if err := c.post(ctx, generalEndpoint, creds, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a generated artifact (signed document bundle) by URL
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lafactura: failed to create download request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lafactura: download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lafactura: download returned HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
