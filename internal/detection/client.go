package detection

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the external face-detection service. The request and
// response shapes are fixed by the detector's API contract.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.DetectorURL,
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type healthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// Analyze submits one JPEG frame and returns the detector's verdict. The
// image travels as a base64 data URL, which is what the detector expects.
func (c *Client) Analyze(ctx context.Context, jpegData []byte) (*Result, error) {
	if len(jpegData) == 0 {
		return nil, fmt.Errorf("no frame data provided")
	}

	req := detectRequest{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/detect-faces", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("detector request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// Probe reports whether the detector is reachable and healthy. Healthy
// means a 2xx response whose body carries {"success":true} or
// {"status":"OK"}.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.Success || health.Status == "OK"
}
