package randomness

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DrandBeacon is a round as published by a drand HTTP endpoint.
type DrandBeacon struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature"`
}

// Bytes decodes the hex randomness.
func (b *DrandBeacon) Bytes() ([]byte, error) {
	raw, err := hex.DecodeString(b.Randomness)
	if err != nil {
		return nil, fmt.Errorf("decoding randomness of round %d: %w", b.Round, err)
	}
	if len(raw) != BeaconSize {
		return nil, fmt.Errorf("round %d has %d bytes of randomness, want %d", b.Round, len(raw), BeaconSize)
	}
	return raw, nil
}

// DrandClient reads rounds from a drand HTTP API
type DrandClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewDrandClient creates a client for endpoint, e.g. https://api.drand.sh
func NewDrandClient(endpoint string, timeout time.Duration) *DrandClient {
	return &DrandClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Latest fetches the most recent round
func (c *DrandClient) Latest(ctx context.Context) (*DrandBeacon, error) {
	return c.get(ctx, "latest")
}

// Round fetches a specific round
func (c *DrandClient) Round(ctx context.Context, round uint64) (*DrandBeacon, error) {
	return c.get(ctx, fmt.Sprintf("%d", round))
}

func (c *DrandClient) get(ctx context.Context, which string) (*DrandBeacon, error) {
	url := fmt.Sprintf("%s/public/%s", c.endpoint, which)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach drand: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read drand response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drand returned error status %d: %s", resp.StatusCode, string(body))
	}

	var beacon DrandBeacon
	if err := json.Unmarshal(body, &beacon); err != nil {
		return nil, fmt.Errorf("failed to parse drand response: %w", err)
	}
	return &beacon, nil
}
